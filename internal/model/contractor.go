// Package model defines the canonical contractor record shared by every
// stage of the registry conversion.
package model

// DefaultState is the state every record in the registry export belongs to.
const DefaultState = "AZ"

// StatusActive is the license status value that marks a record as active.
// The comparison is case-sensitive.
const StatusActive = "Active"

// Field identifies one canonical attribute of a contractor record.
type Field uint8

const (
	FieldLicenseNumber Field = iota
	FieldBusinessName
	FieldLicenseClass
	FieldLicenseType
	FieldLicenseStatus
	FieldLicenseIssued
	FieldLicenseExpiration
	FieldQualifyingParty
	FieldDBAName
	FieldAddress
	FieldCity
	FieldZipCode
	FieldPhone

	// FieldCount is the number of canonical fields.
	FieldCount
)

var fieldNames = [FieldCount]string{
	FieldLicenseNumber:     "license_number",
	FieldBusinessName:      "business_name",
	FieldLicenseClass:      "license_class",
	FieldLicenseType:       "license_type",
	FieldLicenseStatus:     "license_status",
	FieldLicenseIssued:     "license_issued",
	FieldLicenseExpiration: "license_expiration",
	FieldQualifyingParty:   "qualifying_party",
	FieldDBAName:           "dba_name",
	FieldAddress:           "address",
	FieldCity:              "city",
	FieldZipCode:           "zip_code",
	FieldPhone:             "phone",
}

// String returns the snake_case column name of the field.
func (f Field) String() string {
	if f < FieldCount {
		return fieldNames[f]
	}
	return "unknown"
}

// Fields returns all canonical fields in declaration order.
func Fields() []Field {
	fields := make([]Field, FieldCount)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

// Contractor is one normalized registry row.
// All fields are plain strings; an empty string means the source had no value.
type Contractor struct {
	LicenseNumber     string `json:"licenseNumber"`
	BusinessName      string `json:"businessName"`
	LicenseClass      string `json:"licenseClass"`
	LicenseType       string `json:"licenseType"`
	LicenseStatus     string `json:"licenseStatus"`
	LicenseIssued     string `json:"licenseIssued"`
	LicenseExpiration string `json:"licenseExpiration"`
	QualifyingParty   string `json:"qualifyingParty"`
	DBAName           string `json:"dbaName"`
	Address           string `json:"address"`
	City              string `json:"city"`
	ZipCode           string `json:"zipCode"`
	Phone             string `json:"phone"`

	// State is constant for this dataset and not part of the JSON record.
	State string `json:"-"`
}

// Set assigns the value of a canonical field.
func (c *Contractor) Set(f Field, v string) {
	if p := c.field(f); p != nil {
		*p = v
	}
}

// Get returns the value of a canonical field.
func (c *Contractor) Get(f Field) string {
	if p := c.field(f); p != nil {
		return *p
	}
	return ""
}

func (c *Contractor) field(f Field) *string {
	switch f {
	case FieldLicenseNumber:
		return &c.LicenseNumber
	case FieldBusinessName:
		return &c.BusinessName
	case FieldLicenseClass:
		return &c.LicenseClass
	case FieldLicenseType:
		return &c.LicenseType
	case FieldLicenseStatus:
		return &c.LicenseStatus
	case FieldLicenseIssued:
		return &c.LicenseIssued
	case FieldLicenseExpiration:
		return &c.LicenseExpiration
	case FieldQualifyingParty:
		return &c.QualifyingParty
	case FieldDBAName:
		return &c.DBAName
	case FieldAddress:
		return &c.Address
	case FieldCity:
		return &c.City
	case FieldZipCode:
		return &c.ZipCode
	case FieldPhone:
		return &c.Phone
	default:
		return nil
	}
}

// IsValid reports whether the record carries a license number.
func (c *Contractor) IsValid() bool {
	return c.LicenseNumber != ""
}

// IsActive reports whether the license status is exactly "Active".
func (c *Contractor) IsActive() bool {
	return c.LicenseStatus == StatusActive
}

// Reset clears the record for reuse.
func (c *Contractor) Reset() {
	*c = Contractor{}
}
