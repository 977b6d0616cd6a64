package event

import "strings"

// Default complexity thresholds.
const (
	// DefaultLocusThreshold is the widest single-chromosome span, in bases,
	// that a multi-record event may cover and still count as one locus.
	DefaultLocusThreshold int64 = 100

	// DefaultMaxChromosomes is the number of distinct chromosomes an event
	// may touch before it is complex.
	DefaultMaxChromosomes = 1
)

// DefaultStructuralEffects are the effect categories that signal a
// rearrangement rather than a point mutation.
var DefaultStructuralEffects = []string{
	"fusion",
	"translocation",
	"inversion",
	"rearrangement",
	"structural_variant",
}

// Rule decides whether an event is complex.
//
// A single-record event is never complex. An event with two or more records
// is complex when any of the following holds:
//   - it touches more than MaxChromosomes distinct chromosomes
//   - it sits on one chromosome but its span is wider than LocusThreshold
//   - any of its records carries a structural effect category
type Rule struct {
	LocusThreshold    int64
	MaxChromosomes    int
	StructuralEffects []string
}

// DefaultRule returns the rule used when no options are given.
func DefaultRule() Rule {
	return Rule{
		LocusThreshold:    DefaultLocusThreshold,
		MaxChromosomes:    DefaultMaxChromosomes,
		StructuralEffects: append([]string(nil), DefaultStructuralEffects...),
	}
}

// Option configures Group.
type Option func(*Rule)

// WithLocusThreshold sets the widest single-locus span in bases.
// Non-positive values keep the default.
func WithLocusThreshold(bases int64) Option {
	return func(r *Rule) {
		if bases > 0 {
			r.LocusThreshold = bases
		}
	}
}

// WithMaxChromosomes sets how many distinct chromosomes a simple event may
// touch. Values below 1 keep the default.
func WithMaxChromosomes(n int) Option {
	return func(r *Rule) {
		if n >= 1 {
			r.MaxChromosomes = n
		}
	}
}

// WithStructuralEffects replaces the structural effect categories.
func WithStructuralEffects(categories ...string) Option {
	return func(r *Rule) {
		r.StructuralEffects = append([]string(nil), categories...)
	}
}

// IsComplex applies the rule to a built event.
func (r Rule) IsComplex(e *Event) bool {
	if len(e.Variants) < 2 {
		return false
	}
	if len(e.Chromosomes) > r.MaxChromosomes {
		return true
	}
	if !e.MultiLocus() && e.Width() > r.LocusThreshold {
		return true
	}
	for _, effect := range e.Effects {
		if r.isStructural(effect) {
			return true
		}
	}
	return false
}

func (r Rule) isStructural(effect string) bool {
	for _, s := range r.StructuralEffects {
		if strings.EqualFold(effect, s) {
			return true
		}
	}
	return false
}
