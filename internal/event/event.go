// Package event groups variant records into mutational events.
//
// An event is the set of variant records sharing one event id. It represents
// a single biological occurrence, which may touch several loci. Group builds
// events from a batch of records, aggregates their annotations and applies the
// complexity Rule; the comparators in compare.go give the four orderings the
// result views sort by.
//
// Everything in this package is pure: no I/O, no package-level mutable
// state, safe to call concurrently on disjoint inputs.
package event

import (
	"fmt"
	"slices"

	"github.com/JacobsonMT/ndb/internal/variant"
)

// Event is a group of variant records sharing an event id.
// Events are built by Group and never mutated afterwards.
type Event struct {
	EventID  int64            `json:"event_id"`
	Variants []variant.Record `json:"variants"`

	// Genes, Effects and Chromosomes keep first-seen order across Variants.
	Genes       []string `json:"genes"`
	Effects     []string `json:"effects"`
	Chromosomes []string `json:"chromosomes"`

	// Papers and Subjects are ascending.
	Papers   []int64 `json:"papers"`
	Subjects []int64 `json:"subjects"`

	// Chromosome, Start and Stop give the span when the event sits on one
	// chromosome. They are zero for multi-locus events.
	Chromosome string `json:"chromosome,omitempty"`
	Start      int64  `json:"start,omitempty"`
	Stop       int64  `json:"stop,omitempty"`

	Complex bool `json:"complex"`
}

// MultiLocus reports whether the event spans more than one chromosome.
func (e *Event) MultiLocus() bool {
	return len(e.Chromosomes) > 1
}

// Width returns the number of bases covered by a single-chromosome span, or
// 0 for multi-locus events.
func (e *Event) Width() int64 {
	if e.MultiLocus() || len(e.Chromosomes) == 0 {
		return 0
	}
	return e.Stop - e.Start + 1
}

// Location renders the span as "chr:start-stop", or "multi-locus".
func (e *Event) Location() string {
	if e.MultiLocus() {
		return "multi-locus"
	}
	return fmt.Sprintf("%s:%d-%d", e.Chromosome, e.Start, e.Stop)
}

// Group partitions records by event id and builds one Event per group.
//
// Records are grouped by key equality, not adjacency. Events come out in the
// order their first record appears in the input, and each event keeps its
// records in input order. Every input record ends up in exactly one event.
//
// A record with no event id, or with start after stop, fails the whole call
// with an *IntegrityError.
func Group(records []variant.Record, opts ...Option) ([]Event, error) {
	rule := DefaultRule()
	for _, opt := range opts {
		opt(&rule)
	}

	index := make(map[int64]int)
	var builders []*builder
	for i, rec := range records {
		if rec.EventID == 0 {
			return nil, newMissingEventIDError(rec.ID, i)
		}
		if rec.Start > rec.Stop {
			return nil, newInvalidSpanError(rec.ID, i, rec.Start, rec.Stop)
		}
		pos, ok := index[rec.EventID]
		if !ok {
			pos = len(builders)
			index[rec.EventID] = pos
			builders = append(builders, newBuilder(rec.EventID))
		}
		builders[pos].add(rec)
	}

	events := make([]Event, 0, len(builders))
	for _, b := range builders {
		e := b.build()
		e.Complex = rule.IsComplex(&e)
		events = append(events, e)
	}
	return events, nil
}

// AnyComplex reports whether at least one event is complex.
func AnyComplex(events []Event) bool {
	for i := range events {
		if events[i].Complex {
			return true
		}
	}
	return false
}

// builder accumulates one event's aggregates while Group scans the batch.
type builder struct {
	event    Event
	genes    map[string]struct{}
	effects  map[string]struct{}
	chroms   map[string]struct{}
	papers   map[int64]struct{}
	subjects map[int64]struct{}
}

func newBuilder(eventID int64) *builder {
	return &builder{
		event: Event{
			EventID:     eventID,
			Genes:       []string{},
			Effects:     []string{},
			Chromosomes: []string{},
			Papers:      []int64{},
			Subjects:    []int64{},
		},
		genes:    make(map[string]struct{}),
		effects:  make(map[string]struct{}),
		chroms:   make(map[string]struct{}),
		papers:   make(map[int64]struct{}),
		subjects: make(map[int64]struct{}),
	}
}

func (b *builder) add(rec variant.Record) {
	e := &b.event
	e.Variants = append(e.Variants, rec)

	for _, g := range rec.Genes {
		if _, seen := b.genes[g]; !seen {
			b.genes[g] = struct{}{}
			e.Genes = append(e.Genes, g)
		}
	}
	for _, eff := range rec.Effects {
		if _, seen := b.effects[eff]; !seen {
			b.effects[eff] = struct{}{}
			e.Effects = append(e.Effects, eff)
		}
	}
	if _, seen := b.papers[rec.PaperID]; !seen && rec.PaperID != 0 {
		b.papers[rec.PaperID] = struct{}{}
		e.Papers = append(e.Papers, rec.PaperID)
	}
	if _, seen := b.subjects[rec.SubjectID]; !seen && rec.SubjectID != 0 {
		b.subjects[rec.SubjectID] = struct{}{}
		e.Subjects = append(e.Subjects, rec.SubjectID)
	}

	chr := variant.NormalizeChromosome(rec.Chromosome)
	if _, seen := b.chroms[chr]; !seen {
		b.chroms[chr] = struct{}{}
		e.Chromosomes = append(e.Chromosomes, chr)
	}
	if len(e.Variants) == 1 || rec.Start < e.Start {
		e.Start = rec.Start
	}
	if len(e.Variants) == 1 || rec.Stop > e.Stop {
		e.Stop = rec.Stop
	}
}

func (b *builder) build() Event {
	e := b.event
	slices.Sort(e.Papers)
	slices.Sort(e.Subjects)
	if len(e.Chromosomes) == 1 {
		e.Chromosome = e.Chromosomes[0]
	} else {
		e.Chromosome = ""
		e.Start = 0
		e.Stop = 0
	}
	return e
}
