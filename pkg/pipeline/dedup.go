package pipeline

import "fmt"

// DeduplicationStrategy decides what happens when a key is seen again.
type DeduplicationStrategy int

const (
	// DeduplicationKeepFirst keeps the first occurrence of a key.
	DeduplicationKeepFirst DeduplicationStrategy = iota
	// DeduplicationReplace lets a later occurrence replace the earlier one.
	DeduplicationReplace
)

func (s DeduplicationStrategy) String() string {
	switch s {
	case DeduplicationKeepFirst:
		return "ignore"
	case DeduplicationReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseDeduplicationStrategy parses a conflict policy name.
func ParseDeduplicationStrategy(s string) (DeduplicationStrategy, error) {
	switch s {
	case "", "ignore", "keep_first":
		return DeduplicationKeepFirst, nil
	case "replace":
		return DeduplicationReplace, nil
	default:
		return DeduplicationKeepFirst, fmt.Errorf("unknown conflict policy %q (want ignore or replace)", s)
	}
}

// Deduplicator tracks license numbers seen during one pass and the
// position each was stored at.
type Deduplicator struct {
	seen     map[string]int
	strategy DeduplicationStrategy

	duplicates int
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator(strategy DeduplicationStrategy) *Deduplicator {
	return &Deduplicator{
		seen:     make(map[string]int),
		strategy: strategy,
	}
}

// Add registers key at position pos. It returns the position the caller
// should write to and whether the write should happen at all: a new key
// yields (pos, true); a repeated key yields (-1, false) under KeepFirst and
// (original position, true) under Replace.
func (d *Deduplicator) Add(key string, pos int) (int, bool) {
	prev, ok := d.seen[key]
	if !ok {
		d.seen[key] = pos
		return pos, true
	}

	d.duplicates++
	if d.strategy == DeduplicationReplace {
		return prev, true
	}
	return -1, false
}

// Seen reports whether key was added before.
func (d *Deduplicator) Seen(key string) bool {
	_, ok := d.seen[key]
	return ok
}

// DeduplicationStats contains deduplication statistics.
type DeduplicationStats struct {
	UniqueCount    int
	DuplicateCount int
}

// Stats returns deduplication statistics.
func (d *Deduplicator) Stats() DeduplicationStats {
	return DeduplicationStats{
		UniqueCount:    len(d.seen),
		DuplicateCount: d.duplicates,
	}
}
