package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/JacobsonMT/ndb/internal/stats"
	"github.com/JacobsonMT/ndb/internal/variant"
)

var _ stats.Source = (*Store)(nil)

// PaperCount is a per-paper aggregate row.
type PaperCount struct {
	PaperID int64 `json:"paper_id"`
	Count   int   `json:"count"`
}

// PaperCountWithVariants counts papers that report at least one variant.
func (s *Store) PaperCountWithVariants(ctx context.Context) (int, error) {
	return s.count(ctx, "paper count", `
		SELECT COUNT(DISTINCT paper_id) FROM variants WHERE paper_id IS NOT NULL
	`)
}

// VariantCount counts every stored variant.
func (s *Store) VariantCount(ctx context.Context) (int, error) {
	return s.count(ctx, "variant count", `SELECT COUNT(*) FROM variants`)
}

// EventCount counts distinct event ids.
func (s *Store) EventCount(ctx context.Context) (int, error) {
	return s.count(ctx, "event count", `SELECT COUNT(DISTINCT event_id) FROM variants`)
}

// SubjectCount counts distinct subjects carrying at least one variant.
// Subject 0 means unknown and is not counted.
func (s *Store) SubjectCount(ctx context.Context) (int, error) {
	return s.count(ctx, "subject count", `
		SELECT COUNT(DISTINCT subject_id) FROM variants WHERE subject_id > 0
	`)
}

// TopGenesByVariantCount returns the n genes annotated on the most variants.
// Ties break by symbol.
func (s *Store) TopGenesByVariantCount(ctx context.Context, n int) ([]stats.GeneCount, error) {
	return s.topGenes(ctx, "top genes by variant count", `
		SELECT g.symbol, COUNT(DISTINCT g.variant_id) AS c
		FROM variant_genes g
		GROUP BY g.symbol
		ORDER BY c DESC, g.symbol ASC
		LIMIT ?
	`, n)
}

// TopGenesByEventCount returns the n genes touched by the most distinct
// events. Ties break by symbol.
func (s *Store) TopGenesByEventCount(ctx context.Context, n int) ([]stats.GeneCount, error) {
	return s.topGenes(ctx, "top genes by event count", `
		SELECT g.symbol, COUNT(DISTINCT v.event_id) AS c
		FROM variant_genes g
		JOIN variants v ON v.id = g.variant_id
		GROUP BY g.symbol
		ORDER BY c DESC, g.symbol ASC
		LIMIT ?
	`, n)
}

// TopEffectCategories returns the n effect categories found on the most
// variants. Ties break by category.
func (s *Store) TopEffectCategories(ctx context.Context, n int) ([]stats.CategoryCount, error) {
	out := []stats.CategoryCount{}
	if n <= 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.category, COUNT(DISTINCT e.variant_id) AS c
		FROM variant_effects e
		GROUP BY e.category
		ORDER BY c DESC, e.category ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top effect categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c stats.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("top effect categories: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top effect categories: iterate: %w", err)
	}
	return out, nil
}

// TopFuncs returns the n variant functions found on the most variants. Ties
// break by function name.
func (s *Store) TopFuncs(ctx context.Context, n int) ([]stats.FuncCount, error) {
	out := []stats.FuncCount{}
	if n <= 0 {
		return out, nil
	}
	counts, err := s.funcCounts(ctx, "top funcs", `SELECT event_id, funcs FROM variants WHERE funcs <> ''`)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		out = append(out, stats.FuncCount{Func: c.Label, Count: c.Variants})
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// VariantCountByPaper returns the number of variants each paper reports,
// ordered by paper id.
func (s *Store) VariantCountByPaper(ctx context.Context) ([]PaperCount, error) {
	return s.perPaper(ctx, "variant count by paper", `
		SELECT paper_id, COUNT(*)
		FROM variants
		WHERE paper_id IS NOT NULL
		GROUP BY paper_id
		ORDER BY paper_id ASC
	`)
}

// EventCountByPaper returns the number of distinct events each paper
// reports, ordered by paper id.
func (s *Store) EventCountByPaper(ctx context.Context) ([]PaperCount, error) {
	return s.perPaper(ctx, "event count by paper", `
		SELECT paper_id, COUNT(DISTINCT event_id)
		FROM variants
		WHERE paper_id IS NOT NULL
		GROUP BY paper_id
		ORDER BY paper_id ASC
	`)
}

func (s *Store) count(ctx context.Context, op, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *Store) topGenes(ctx context.Context, op, query string, n int) ([]stats.GeneCount, error) {
	out := []stats.GeneCount{}
	if n <= 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g stats.GeneCount
		if err := rows.Scan(&g.Symbol, &g.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func (s *Store) perPaper(ctx context.Context, op, query string) ([]PaperCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []PaperCount{}
	for rows.Next() {
		var pc PaperCount
		if err := rows.Scan(&pc.PaperID, &pc.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

// funcCounts tallies the ';'-delimited funcs column of the (event_id, funcs)
// rows query returns. Rows are ordered by variant count DESC then label.
func (s *Store) funcCounts(ctx context.Context, op, query string, args ...any) ([]LabelCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	byLabel := map[string]*LabelCount{}
	events := map[string]map[int64]bool{}
	for rows.Next() {
		var (
			eventID int64
			funcs   string
		)
		if err := rows.Scan(&eventID, &funcs); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, f := range variant.SplitList(funcs) {
			lc, ok := byLabel[f]
			if !ok {
				lc = &LabelCount{Label: f}
				byLabel[f] = lc
				events[f] = map[int64]bool{}
			}
			lc.Variants++
			if !events[f][eventID] {
				events[f][eventID] = true
				lc.Events++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}

	out := make([]LabelCount, 0, len(byLabel))
	for _, lc := range byLabel {
		out = append(out, *lc)
	}
	slices.SortFunc(out, func(a, b LabelCount) int {
		if c := cmp.Compare(b.Variants, a.Variants); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out, nil
}
