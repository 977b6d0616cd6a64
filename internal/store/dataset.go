package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JacobsonMT/ndb/internal/variant"
)

// Paper is a publication reporting variants.
type Paper struct {
	ID       int64  `json:"id" yaml:"id"`
	PubmedID string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	Cohort   string `json:"cohort,omitempty" yaml:"cohort,omitempty"`
}

// Dataset is the unit of import: papers and the variants they report.
//
//	papers:
//	  - id: 1
//	    pubmed_id: "25363760"
//	    author: De Rubeis
//	variants:
//	  - id: 1
//	    event_id: 7
//	    paper_id: 1
//	    chromosome: chr17
//	    start: 41245466
//	    stop: 41245466
//	    genes: [BRCA1]
type Dataset struct {
	Papers   []Paper          `yaml:"papers"`
	Variants []variant.Record `yaml:"variants"`
}

// ImportResult counts what an Import wrote.
type ImportResult struct {
	Papers   int `json:"papers"`
	Variants int `json:"variants"`
	Genes    int `json:"genes"`
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a YAML dataset. Unknown fields are rejected so that a
// misspelled column does not silently import as empty.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	return ds, nil
}

// Validate checks every record before anything is written.
func (d Dataset) Validate() error {
	papers := make(map[int64]bool, len(d.Papers))
	for i, p := range d.Papers {
		if p.ID <= 0 {
			return fmt.Errorf("papers[%d]: id must be positive, got %d", i, p.ID)
		}
		if papers[p.ID] {
			return fmt.Errorf("papers[%d]: duplicate paper id %d", i, p.ID)
		}
		papers[p.ID] = true
	}
	seen := make(map[int64]bool, len(d.Variants))
	for i, rec := range d.Variants {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
		if rec.EventID <= 0 {
			return fmt.Errorf("variants[%d]: variant %d has no event id", i, rec.ID)
		}
		if variant.NormalizeChromosome(rec.Chromosome) == "" {
			return fmt.Errorf("variants[%d]: variant %d has no chromosome", i, rec.ID)
		}
		if seen[rec.ID] {
			return fmt.Errorf("variants[%d]: duplicate variant id %d", i, rec.ID)
		}
		seen[rec.ID] = true
	}
	return nil
}

// Import writes the dataset in one transaction. Papers and variants that
// already exist are replaced, so importing the same file twice is a no-op.
// On any error nothing is written.
func (s *Store) Import(ctx context.Context, ds Dataset) (ImportResult, error) {
	if err := ds.Validate(); err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var res ImportResult
	for _, p := range ds.Papers {
		if err := upsertPaper(ctx, tx, p); err != nil {
			return ImportResult{}, fmt.Errorf("import: %w", err)
		}
		res.Papers++
	}

	genes := map[string]bool{}
	for _, rec := range ds.Variants {
		symbols, err := upsertVariant(ctx, tx, rec)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import: %w", err)
		}
		for _, sym := range symbols {
			genes[sym] = true
		}
		res.Variants++
	}
	res.Genes = len(genes)

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("import: commit: %w", err)
	}
	return res, nil
}

func upsertPaper(ctx context.Context, tx *sql.Tx, p Paper) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO papers (id, pubmed_id, title, author, year, cohort)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pubmed_id = excluded.pubmed_id,
			title = excluded.title,
			author = excluded.author,
			year = excluded.year,
			cohort = excluded.cohort
	`, p.ID, p.PubmedID, p.Title, p.Author, p.Year, p.Cohort)
	if err != nil {
		return fmt.Errorf("write paper %d: %w", p.ID, err)
	}
	return nil
}

// upsertVariant writes one record and replaces its annotations. It returns
// the normalized gene symbols it linked.
// canonicalGene registers sym and returns the spelling genes already holds
// for it. Symbols compare case-insensitively, so the first import of a gene
// fixes its case for every later link.
func canonicalGene(ctx context.Context, tx *sql.Tx, sym string) (string, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO genes (symbol) VALUES (?) ON CONFLICT DO NOTHING`, sym); err != nil {
		return "", fmt.Errorf("write gene %q: %w", sym, err)
	}
	var canonical string
	if err := tx.QueryRowContext(ctx, `SELECT symbol FROM genes WHERE symbol = ?`, sym).Scan(&canonical); err != nil {
		return "", fmt.Errorf("read gene %q: %w", sym, err)
	}
	return canonical, nil
}

func upsertVariant(ctx context.Context, tx *sql.Tx, rec variant.Record) ([]string, error) {
	var paperID sql.NullInt64
	if rec.PaperID > 0 {
		paperID = sql.NullInt64{Int64: rec.PaperID, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO variants
		(id, raw_variant_id, event_id, subject_id, paper_id, sample_id, chromosome, start, stop,
		 ref, alt, funcs, aa_changes, cytoband, gene_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_variant_id = excluded.raw_variant_id,
			event_id = excluded.event_id,
			subject_id = excluded.subject_id,
			paper_id = excluded.paper_id,
			sample_id = excluded.sample_id,
			chromosome = excluded.chromosome,
			start = excluded.start,
			stop = excluded.stop,
			ref = excluded.ref,
			alt = excluded.alt,
			funcs = excluded.funcs,
			aa_changes = excluded.aa_changes,
			cytoband = excluded.cytoband,
			gene_detail = excluded.gene_detail
	`,
		rec.ID,
		rec.RawVariantID,
		rec.EventID,
		rec.SubjectID,
		paperID,
		rec.SampleID,
		variant.NormalizeChromosome(rec.Chromosome),
		rec.Start,
		rec.Stop,
		rec.Ref,
		rec.Alt,
		variant.JoinList(rec.Funcs),
		variant.JoinList(rec.AAChanges),
		rec.Cytoband,
		rec.GeneDetail,
	)
	if err != nil {
		return nil, fmt.Errorf("write variant %d: %w", rec.ID, err)
	}

	for _, table := range []string{"variant_genes", "variant_effects"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE variant_id = ?", rec.ID); err != nil {
			return nil, fmt.Errorf("clear %s for variant %d: %w", table, rec.ID, err)
		}
	}

	var symbols []string
	for i, sym := range variant.NormalizeSymbols(rec.Genes) {
		sym, err := canonicalGene(ctx, tx, sym)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO variant_genes (variant_id, symbol, position) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, rec.ID, sym, i); err != nil {
			return nil, fmt.Errorf("link gene %q to variant %d: %w", sym, rec.ID, err)
		}
	}

	for i, cat := range variant.NormalizeSymbols(rec.Effects) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO variant_effects (variant_id, category, position) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, rec.ID, cat, i); err != nil {
			return nil, fmt.Errorf("link effect %q to variant %d: %w", cat, rec.ID, err)
		}
	}

	return symbols, nil
}
