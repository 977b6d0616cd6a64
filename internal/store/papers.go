package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LabelCount counts the variants and distinct events carrying one label, an
// effect category or a variant function.
type LabelCount struct {
	Label    string `json:"label"`
	Variants int    `json:"variants"`
	Events   int    `json:"events"`
}

// PaperOverlap is the number of genes two papers both report variants in.
type PaperOverlap struct {
	PaperID     int64 `json:"paper_id"`
	SharedGenes int   `json:"shared_genes"`
}

// PaperStats breaks down what one paper reports.
type PaperStats struct {
	Variants   int            `json:"variants"`
	Events     int            `json:"events"`
	Subjects   int            `json:"subjects"`
	Categories []LabelCount   `json:"categories"`
	Contexts   []LabelCount   `json:"contexts"`
	Overlap    []PaperOverlap `json:"overlap"`
}

const paperColumns = `id, pubmed_id, title, author, year, cohort`

// Papers returns every paper ordered by id.
func (s *Store) Papers(ctx context.Context) ([]Paper, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("papers: %w", err)
	}
	defer rows.Close()

	out := []Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("papers: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("papers: iterate: %w", err)
	}
	return out, nil
}

// Paper returns one paper by id, or ErrNotFound.
func (s *Store) Paper(ctx context.Context, id int64) (Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Paper{}, fmt.Errorf("paper %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Paper{}, fmt.Errorf("read paper %d: %w", id, err)
	}
	return p, nil
}

// PaperStats computes the per-paper breakdown: totals, variants and events
// by effect category and by variant function, and the gene overlap with
// every other paper that shares at least one gene.
func (s *Store) PaperStats(ctx context.Context, paperID int64) (PaperStats, error) {
	var ps PaperStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT event_id),
		       COUNT(DISTINCT CASE WHEN subject_id > 0 THEN subject_id END)
		FROM variants WHERE paper_id = ?
	`, paperID).Scan(&ps.Variants, &ps.Events, &ps.Subjects)
	if err != nil {
		return PaperStats{}, fmt.Errorf("paper %d totals: %w", paperID, err)
	}

	ps.Categories, err = s.labelCounts(ctx, "paper categories", `
		SELECT e.category, COUNT(DISTINCT v.id) AS nv, COUNT(DISTINCT v.event_id)
		FROM variant_effects e
		JOIN variants v ON v.id = e.variant_id
		WHERE v.paper_id = ?
		GROUP BY e.category
		ORDER BY nv DESC, e.category ASC
	`, paperID)
	if err != nil {
		return PaperStats{}, err
	}

	ps.Contexts, err = s.funcCounts(ctx, "paper contexts",
		`SELECT event_id, funcs FROM variants WHERE paper_id = ? AND funcs <> ''`, paperID)
	if err != nil {
		return PaperStats{}, err
	}

	ps.Overlap, err = s.paperOverlap(ctx, paperID)
	if err != nil {
		return PaperStats{}, err
	}
	return ps, nil
}

func (s *Store) paperOverlap(ctx context.Context, paperID int64) ([]PaperOverlap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v2.paper_id, COUNT(DISTINCT g2.symbol)
		FROM variants v1
		JOIN variant_genes g1 ON g1.variant_id = v1.id
		JOIN variant_genes g2 ON g2.symbol = g1.symbol
		JOIN variants v2 ON v2.id = g2.variant_id
		WHERE v1.paper_id = ? AND v2.paper_id IS NOT NULL AND v2.paper_id <> v1.paper_id
		GROUP BY v2.paper_id
		ORDER BY v2.paper_id ASC
	`, paperID)
	if err != nil {
		return nil, fmt.Errorf("paper %d overlap: %w", paperID, err)
	}
	defer rows.Close()

	out := []PaperOverlap{}
	for rows.Next() {
		var o PaperOverlap
		if err := rows.Scan(&o.PaperID, &o.SharedGenes); err != nil {
			return nil, fmt.Errorf("paper %d overlap: %w", paperID, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paper %d overlap: iterate: %w", paperID, err)
	}
	return out, nil
}

func (s *Store) labelCounts(ctx context.Context, op, query string, args ...any) ([]LabelCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []LabelCount{}
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Variants, &lc.Events); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func scanPaper(sc scanner) (Paper, error) {
	var p Paper
	err := sc.Scan(&p.ID, &p.PubmedID, &p.Title, &p.Author, &p.Year, &p.Cohort)
	return p, err
}
