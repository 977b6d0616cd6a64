package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a genomic interval used for position searches.
// Start and Stop are 1-based and inclusive.
type Region struct {
	Chromosome string
	Start      int64
	Stop       int64
}

// ParseRegion parses "chr:start-stop" (for example "1:100-200" or
// "chrX:5-5"). The chromosome is normalized with NormalizeChromosome.
func ParseRegion(s string) (Region, error) {
	chr, span, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || chr == "" || span == "" {
		return Region{}, fmt.Errorf("malformed region %q: expected chr:start-stop", s)
	}
	startStr, stopStr, ok := strings.Cut(span, "-")
	if !ok {
		return Region{}, fmt.Errorf("malformed region %q: expected chr:start-stop", s)
	}
	start, err := strconv.ParseInt(strings.ReplaceAll(startStr, ",", ""), 10, 64)
	if err != nil {
		return Region{}, fmt.Errorf("malformed region start %q: %w", startStr, err)
	}
	stop, err := strconv.ParseInt(strings.ReplaceAll(stopStr, ",", ""), 10, 64)
	if err != nil {
		return Region{}, fmt.Errorf("malformed region stop %q: %w", stopStr, err)
	}
	r := Region{Chromosome: NormalizeChromosome(chr), Start: start, Stop: stop}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate rejects empty chromosomes, non-positive coordinates and inverted
// intervals.
func (r Region) Validate() error {
	if r.Chromosome == "" {
		return fmt.Errorf("region chromosome is required")
	}
	if r.Start < 1 {
		return fmt.Errorf("region start must be >= 1, got %d", r.Start)
	}
	if r.Start > r.Stop {
		return fmt.Errorf("region start %d is after stop %d", r.Start, r.Stop)
	}
	return nil
}

// Overlaps reports whether the record intersects the region.
func (r Region) Overlaps(rec Record) bool {
	return NormalizeChromosome(rec.Chromosome) == r.Chromosome && rec.Start <= r.Stop && rec.Stop >= r.Start
}

// String renders the region as "chr:start-stop".
func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chromosome, r.Start, r.Stop)
}
