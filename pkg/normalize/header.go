// Package normalize maps parsed registry rows onto model.Contractor.
//
// Header text is matched through a static alias table after normalizing
// case, separators and spacing, so "License Number", "license_number" and
// "LICENSE  NO" all resolve to the same field. The resulting HeaderIndex is
// built once per input and never changes afterwards.
package normalize

import (
	"strings"

	"github.com/registryflow/registryflow/internal/model"
	"github.com/registryflow/registryflow/pkg/parser"
)

// aliases maps normalized header text to the field it carries.
var aliases = map[string]model.Field{
	"license number": model.FieldLicenseNumber,
	"license no":     model.FieldLicenseNumber,
	"license no.":    model.FieldLicenseNumber,
	"license #":      model.FieldLicenseNumber,
	"license":        model.FieldLicenseNumber,
	"licensenumber":  model.FieldLicenseNumber,
	"roc license":    model.FieldLicenseNumber,
	"roc license no": model.FieldLicenseNumber,
	"roc number":     model.FieldLicenseNumber,
	"roc #":          model.FieldLicenseNumber,
	"license num":    model.FieldLicenseNumber,
	"lic number":     model.FieldLicenseNumber,
	"lic #":          model.FieldLicenseNumber,

	"business name":   model.FieldBusinessName,
	"businessname":    model.FieldBusinessName,
	"company":         model.FieldBusinessName,
	"company name":    model.FieldBusinessName,
	"contractor":      model.FieldBusinessName,
	"contractor name": model.FieldBusinessName,
	"name":            model.FieldBusinessName,

	"license class":  model.FieldLicenseClass,
	"licenseclass":   model.FieldLicenseClass,
	"class":          model.FieldLicenseClass,
	"classification": model.FieldLicenseClass,

	"license type": model.FieldLicenseType,
	"licensetype":  model.FieldLicenseType,
	"type":         model.FieldLicenseType,

	"license status": model.FieldLicenseStatus,
	"licensestatus":  model.FieldLicenseStatus,
	"status":         model.FieldLicenseStatus,

	"license issued":     model.FieldLicenseIssued,
	"issued":             model.FieldLicenseIssued,
	"issue date":         model.FieldLicenseIssued,
	"license issue date": model.FieldLicenseIssued,
	"date issued":        model.FieldLicenseIssued,

	"license expiration":      model.FieldLicenseExpiration,
	"expiration":              model.FieldLicenseExpiration,
	"expiration date":         model.FieldLicenseExpiration,
	"license expiration date": model.FieldLicenseExpiration,
	"expires":                 model.FieldLicenseExpiration,

	"qualifying party":  model.FieldQualifyingParty,
	"qualifyingparty":   model.FieldQualifyingParty,
	"qualifier":         model.FieldQualifyingParty,
	"qualifying person": model.FieldQualifyingParty,

	"dba name":          model.FieldDBAName,
	"dba":               model.FieldDBAName,
	"dbaname":           model.FieldDBAName,
	"doing business as": model.FieldDBAName,

	"address":        model.FieldAddress,
	"street address": model.FieldAddress,
	"street":         model.FieldAddress,
	"address 1":      model.FieldAddress,
	"address line 1": model.FieldAddress,

	"city": model.FieldCity,
	"town": model.FieldCity,

	"zip code":    model.FieldZipCode,
	"zipcode":     model.FieldZipCode,
	"zip":         model.FieldZipCode,
	"postal code": model.FieldZipCode,
	"zip 5":       model.FieldZipCode,

	"phone":        model.FieldPhone,
	"phone number": model.FieldPhone,
	"telephone":    model.FieldPhone,
	"phonenumber":  model.FieldPhone,
}

// NormalizeHeader lower-cases and trims s, turns '_' and '-' into spaces
// and collapses runs of whitespace.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Lookup resolves one header cell to its field.
func Lookup(header string) (model.Field, bool) {
	f, ok := aliases[NormalizeHeader(header)]
	return f, ok
}

// HeaderIndex maps each field to its column position, or -1 when the
// header does not carry it.
type HeaderIndex [model.FieldCount]int

// NewHeaderIndex builds the index for a header row. When two columns map to
// the same field the leftmost one wins; unknown columns are ignored.
func NewHeaderIndex(header parser.Row) HeaderIndex {
	var idx HeaderIndex
	for i := range idx {
		idx[i] = -1
	}

	for col, name := range header {
		f, ok := Lookup(name)
		if !ok || idx[f] >= 0 {
			continue
		}
		idx[f] = col
	}
	return idx
}

// Column returns the position of f, or -1.
func (h HeaderIndex) Column(f model.Field) int {
	return h[f]
}

// Has reports whether the header carries f.
func (h HeaderIndex) Has(f model.Field) bool {
	return h[f] >= 0
}

// Mapped returns the fields present in the header, in field order.
func (h HeaderIndex) Mapped() []model.Field {
	var out []model.Field
	for _, f := range model.Fields() {
		if h.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Width is the minimum row length that covers every mapped column.
func (h HeaderIndex) Width() int {
	w := 0
	for _, col := range h {
		if col+1 > w {
			w = col + 1
		}
	}
	return w
}
