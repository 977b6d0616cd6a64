// Package variant holds the variant record model shared by the store, the
// grouping engine and the CLI.
//
// Coordinates are 1-based and inclusive on a reference build fixed per
// deployment. Records are built once by the store (or a fixture) and never
// mutated afterwards.
package variant

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is one observed variant in one subject, as reported by one paper.
//
// EventID is the grouping key: records sharing it form one event. A zero
// EventID means the store had no key for the row.
type Record struct {
	ID           int64    `json:"id" yaml:"id"`
	RawVariantID int64    `json:"raw_variant_id,omitempty" yaml:"raw_variant_id,omitempty"`
	EventID      int64    `json:"event_id" yaml:"event_id"`
	SubjectID    int64    `json:"subject_id" yaml:"subject_id"`
	PaperID      int64    `json:"paper_id" yaml:"paper_id"`
	SampleID     string   `json:"sample_id,omitempty" yaml:"sample_id,omitempty"`
	Chromosome   string   `json:"chromosome" yaml:"chromosome"`
	Start        int64    `json:"start" yaml:"start"`
	Stop         int64    `json:"stop" yaml:"stop"`
	Ref          string   `json:"ref" yaml:"ref"`
	Alt          string   `json:"alt" yaml:"alt"`
	Genes        []string `json:"genes" yaml:"genes"`
	Effects      []string `json:"effects" yaml:"effects"`
	Funcs        []string `json:"funcs,omitempty" yaml:"funcs,omitempty"`
	AAChanges    []string `json:"aa_changes,omitempty" yaml:"aa_changes,omitempty"`
	Cytoband     string   `json:"cytoband,omitempty" yaml:"cytoband,omitempty"`
	GeneDetail   string   `json:"gene_detail,omitempty" yaml:"gene_detail,omitempty"`
}

// Validate checks the invariants a record must hold before it is grouped or
// stored: a positive identity and a well-formed span.
func (r Record) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("variant id must be positive, got %d", r.ID)
	}
	if r.Start > r.Stop {
		return fmt.Errorf("variant %d: start %d is after stop %d", r.ID, r.Start, r.Stop)
	}
	return nil
}

// Width returns the number of reference bases covered by the record.
func (r Record) Width() int64 {
	return r.Stop - r.Start + 1
}

// String renders a short identification for logs.
func (r Record) String() string {
	return fmt.Sprintf("variant %d (event %d) %s:%d-%d %s>%s", r.ID, r.EventID, r.Chromosome, r.Start, r.Stop, r.Ref, r.Alt)
}

// SplitList splits a ';'-delimited annotation column into its entries.
// Blank input yields an empty, non-nil slice; entries are trimmed and empty
// entries dropped.
func SplitList(s string) []string {
	out := []string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	return strings.Join(items, ";")
}

// NormalizeChromosome maps the common spellings of a chromosome name to one
// token: "chr1" and "1" become "1", "chrx" becomes "X", "MT" becomes "M".
func NormalizeChromosome(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 3 && strings.EqualFold(s[:3], "chr") {
		s = s[3:]
	}
	switch strings.ToUpper(s) {
	case "X":
		return "X"
	case "Y":
		return "Y"
	case "M", "MT":
		return "M"
	}
	return s
}

// NormalizeSymbol trims a gene symbol and puts it in Unicode NFC form so
// that symbols imported from different spreadsheets compare equal.
func NormalizeSymbol(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeSymbols applies NormalizeSymbol to every entry, dropping blanks.
func NormalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
