package stats

import (
	"context"
	"fmt"
)

// Summary is every figure of the statistics page in one value.
type Summary struct {
	Papers              int             `json:"papers"`
	Variants            int             `json:"variants"`
	Events              int             `json:"events"`
	Subjects            int             `json:"subjects"`
	TopGenesByVariants  []GeneCount     `json:"top_genes_by_variants"`
	TopGenesByEvents    []GeneCount     `json:"top_genes_by_events"`
	TopEffectCategories []CategoryCount `json:"top_effect_categories"`
	TopFuncs            []FuncCount     `json:"top_funcs"`
}

// Summary reads every figure through its cache. The first failing figure
// aborts the read.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		sum Summary
		err error
	)
	if sum.Papers, err = s.PaperCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.Variants, err = s.VariantCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.Events, err = s.EventCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.Subjects, err = s.SubjectCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.TopGenesByVariants, err = s.TopGenesByVariantCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.TopGenesByEvents, err = s.TopGenesByEventCount(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.TopEffectCategories, err = s.TopEffectCategories(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.TopFuncs, err = s.TopFuncs(ctx); err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}
