package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/registryflow/registryflow/internal/model"
	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

// regionRecord is the shape of one element of a region file.
type regionRecord struct {
	*model.Contractor
	Region Region `json:"region"`
}

type regionFile struct {
	path  string
	file  *os.File
	buf   *bufio.Writer
	count int
}

// RegionSink writes active records into one JSON array file per region.
// A file is created on the first record routed to its region, so regions
// without records produce no file.
type RegionSink struct {
	dir   string
	files map[Region]*regionFile
}

// NewRegionSink creates a sink writing <dir>/<region>.json files.
func NewRegionSink(dir string) *RegionSink {
	return &RegionSink{
		dir:   dir,
		files: make(map[Region]*regionFile),
	}
}

// Name implements pipeline.Sink.
func (s *RegionSink) Name() string { return "regions" }

// Open creates the region directory and removes region files left by a
// previous run.
func (s *RegionSink) Open(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create region directory: %w", err)
	}

	stale, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove stale region file: %w", err)
		}
	}
	return nil
}

// Write appends an active record to its region's array.
func (s *RegionSink) Write(ctx context.Context, c *model.Contractor) error {
	if !c.IsActive() {
		return nil
	}

	region := ClassifyRegion(c.City)
	rf, err := s.fileFor(region)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(regionRecord{Contractor: c, Region: region}, "  ", "  ")
	if err != nil {
		return err
	}

	if rf.count > 0 {
		if _, err := rf.buf.WriteString(",\n"); err != nil {
			return err
		}
	}
	if _, err := rf.buf.WriteString("  "); err != nil {
		return err
	}
	if _, err := rf.buf.Write(data); err != nil {
		return err
	}
	rf.count++
	return nil
}

func (s *RegionSink) fileFor(region Region) (*regionFile, error) {
	if rf, ok := s.files[region]; ok {
		return rf, nil
	}

	path := filepath.Join(s.dir, string(region)+".json")
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	rf := &regionFile{path: path, file: f, buf: bufio.NewWriter(f)}
	if _, err := rf.buf.WriteString("[\n"); err != nil {
		f.Close()
		return nil, err
	}
	s.files[region] = rf
	return rf, nil
}

// Close terminates every array and closes the files.
func (s *RegionSink) Close(ctx context.Context) error {
	var errs rferrors.MultiError
	for _, region := range s.opened() {
		rf := s.files[region]
		if _, err := rf.buf.WriteString("\n]\n"); err != nil {
			errs.Add(fmt.Errorf("%s: %w", region, err))
		}
		if err := rf.buf.Flush(); err != nil {
			errs.Add(fmt.Errorf("%s: %w", region, err))
		}
		if err := rf.file.Close(); err != nil {
			errs.Add(fmt.Errorf("%s: %w", region, err))
		}
	}
	return errs.Combined()
}

// Artifacts implements pipeline.Sink.
func (s *RegionSink) Artifacts() []string {
	var out []string
	for _, region := range s.opened() {
		out = append(out, s.files[region].path)
	}
	return out
}

// Counts returns the number of records written per region.
func (s *RegionSink) Counts() map[Region]int {
	out := make(map[Region]int, len(s.files))
	for region, rf := range s.files {
		out[region] = rf.count
	}
	return out
}

func (s *RegionSink) opened() []Region {
	regions := make([]Region, 0, len(s.files))
	for region := range s.files {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions
}
