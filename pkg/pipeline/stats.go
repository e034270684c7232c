package pipeline

import (
	"fmt"

	"github.com/registryflow/registryflow/internal/model"
)

// maxReportedErrors is how many error messages a Report carries inline.
const maxReportedErrors = 5

// Stats accumulates counters and row errors for one pass.
//
// A Stats value has a single writer: the driver goroutine running the pass.
// Concurrent passes each own their own Stats.
type Stats struct {
	total   int
	active  int
	classes map[string]struct{}
	cities  map[string]struct{}
	errors  []ErrorRecord
}

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return &Stats{
		classes: make(map[string]struct{}),
		cities:  make(map[string]struct{}),
	}
}

// RecordSeen counts one processed data row.
func (s *Stats) RecordSeen() {
	s.total++
}

// RecordActive counts an active record and remembers its class and city.
// Blank values are not distinct classes or cities.
func (s *Stats) RecordActive(c *model.Contractor) {
	s.active++
	if c.LicenseClass != "" {
		s.classes[c.LicenseClass] = struct{}{}
	}
	if c.City != "" {
		s.cities[c.City] = struct{}{}
	}
}

// RecordError appends a row error. row is the 1-based data row ordinal.
func (s *Stats) RecordError(row int, message string) {
	s.errors = append(s.errors, ErrorRecord{Row: row, Message: message})
}

// AddError appends a fully populated error record.
func (s *Stats) AddError(rec ErrorRecord) {
	s.errors = append(s.errors, rec)
}

// Total returns the number of rows seen.
func (s *Stats) Total() int { return s.total }

// Active returns the number of active records.
func (s *Stats) Active() int { return s.active }

// Errors returns every recorded error in row order.
func (s *Stats) Errors() []ErrorRecord {
	out := make([]ErrorRecord, len(s.errors))
	copy(out, s.errors)
	return out
}

// Report is an immutable summary of a Stats value.
type Report struct {
	Total     int      `json:"total"`
	Active    int      `json:"active"`
	Classes   int      `json:"classes"`
	Cities    int      `json:"cities"`
	Errors    int      `json:"errors"`
	Messages  []string `json:"messages,omitempty"`
	MoreCount int      `json:"more,omitempty"`
}

// Report summarizes the pass. Only the first five error messages are
// included; MoreCount says how many were left out.
func (s *Stats) Report() Report {
	r := Report{
		Total:   s.total,
		Active:  s.active,
		Classes: len(s.classes),
		Cities:  len(s.cities),
		Errors:  len(s.errors),
	}

	for i, e := range s.errors {
		if i == maxReportedErrors {
			r.MoreCount = len(s.errors) - maxReportedErrors
			break
		}
		r.Messages = append(r.Messages, e.String())
	}
	return r
}

// More renders the truncation suffix, or "" when nothing was truncated.
func (r Report) More() string {
	if r.MoreCount == 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", r.MoreCount)
}
