package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/registryflow/registryflow/internal/model"
	"github.com/registryflow/registryflow/pkg/pipeline"
)

// seedTemplate renders a Prisma seed script. Every value goes through lit,
// which produces a double-quoted literal that is valid TypeScript.
var seedTemplate = template.Must(template.New("seed").Funcs(template.FuncMap{
	"lit": tsLiteral,
}).Parse(`// Generated by registryflow{{if .Source}} from {{.Source}}{{end}}. Do not edit by hand.
// {{len .Records}} active contractors{{if .Skipped}}, {{.Skipped}} left out by the cap of {{.Cap}}{{end}}.
import { PrismaClient } from '@prisma/client';

const prisma = new PrismaClient();

const contractors = [
{{- range .Records}}
  {
    licenseNumber: {{lit .LicenseNumber}},
    businessName: {{lit .BusinessName}},
    licenseClass: {{lit .LicenseClass}},
    licenseType: {{lit .LicenseType}},
    licenseStatus: {{lit .LicenseStatus}},
    licenseIssued: {{lit .LicenseIssued}},
    licenseExpiration: {{lit .LicenseExpiration}},
    qualifyingParty: {{lit .QualifyingParty}},
    dbaName: {{lit .DBAName}},
    address: {{lit .Address}},
    zipCode: {{lit .ZipCode}},
    phone: {{lit .Phone}},
    state: {{lit .State}},
    serviceAreas: [{{range $i, $a := .ServiceAreas}}{{if $i}}, {{end}}{{lit $a}}{{end}}],
  },
{{- end}}
];

async function main() {
  for (const contractor of contractors) {
    await prisma.contractor.upsert({
      where: { licenseNumber: contractor.licenseNumber },
      update: contractor,
      create: contractor,
    });
  }
  console.log('Seeded ' + contractors.length + ' contractors');
}

main()
  .catch((e) => {
    console.error(e);
    process.exit(1);
  })
  .finally(async () => {
    await prisma.$disconnect();
  });
`))

// seedRecord is the seed script's view of a contractor: the city becomes a
// list of service areas.
type seedRecord struct {
	model.Contractor
	ServiceAreas []string
}

func newSeedRecord(c *model.Contractor) seedRecord {
	r := seedRecord{Contractor: *c}
	if c.City != "" {
		r.ServiceAreas = []string{c.City}
	}
	return r
}

// SeedSink collects up to limit active records, de-duplicated by license
// number, and renders them as a seed script when closed.
type SeedSink struct {
	path   string
	limit  int
	source string

	dedup   *pipeline.Deduplicator
	records []seedRecord
	skipped int
	written bool
}

// NewSeedSink creates a sink writing the script at path. A limit of zero
// or less embeds no records.
func NewSeedSink(path string, limit int, source string) *SeedSink {
	if source != "" {
		source = filepath.Base(source)
	}
	return &SeedSink{
		path:   path,
		limit:  limit,
		source: source,
		dedup:  pipeline.NewDeduplicator(pipeline.DeduplicationKeepFirst),
	}
}

// Name implements pipeline.Sink.
func (s *SeedSink) Name() string { return "seed" }

// Open makes sure the output directory exists.
func (s *SeedSink) Open(ctx context.Context) error {
	return os.MkdirAll(filepath.Dir(s.path), 0o755)
}

// Write keeps c if it is active, new and within the limit.
func (s *SeedSink) Write(ctx context.Context, c *model.Contractor) error {
	if !c.IsActive() || s.dedup.Seen(c.LicenseNumber) {
		return nil
	}
	if len(s.records) >= s.limit {
		s.skipped++
		return nil
	}

	s.dedup.Add(c.LicenseNumber, len(s.records))
	s.records = append(s.records, newSeedRecord(c))
	return nil
}

// Close renders the script.
func (s *SeedSink) Close(ctx context.Context) error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}

	buf := bufio.NewWriter(f)
	err = seedTemplate.Execute(buf, struct {
		Source  string
		Cap     int
		Skipped int
		Records []seedRecord
	}{
		Source:  s.source,
		Cap:     s.limit,
		Skipped: s.skipped,
		Records: s.records,
	})
	if err == nil {
		err = buf.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render seed script: %w", err)
	}

	s.written = true
	return nil
}

// Artifacts implements pipeline.Sink.
func (s *SeedSink) Artifacts() []string {
	if !s.written {
		return nil
	}
	return []string{s.path}
}

// Len returns the number of embedded records.
func (s *SeedSink) Len() int { return len(s.records) }

// tsLiteral quotes s as a JSON string, which TypeScript accepts verbatim.
func tsLiteral(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
