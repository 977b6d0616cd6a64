// Package stats serves the site-wide summary figures: paper, variant, event
// and subject counts and the top genes, effect categories and variant
// functions.
//
// Every figure is an expensive aggregate over the whole database, so each
// one sits behind its own statscache.Cache and is recomputed at most once per
// TTL. The caches are independent: a slow top-genes query never delays the
// paper count.
package stats

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JacobsonMT/ndb/internal/statscache"
)

// DefaultTopN is the length of every top list.
const DefaultTopN = 5

// Metric names, used as cache names, log attributes and metric labels.
const (
	MetricPaperCount          = "paper_count"
	MetricVariantCount        = "variant_count"
	MetricEventCount          = "event_count"
	MetricSubjectCount        = "subject_count"
	MetricTopGenesByVariants  = "top_genes_by_variant_count"
	MetricTopGenesByEvents    = "top_genes_by_event_count"
	MetricTopEffectCategories = "top_effect_categories"
	MetricTopFuncs            = "top_funcs"
)

// GeneCount is one row of a top-genes list.
type GeneCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// CategoryCount is one row of the top effect categories list.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FuncCount is one row of the top variant functions list. A function is the
// genomic context of a variant: exonic, intronic, splicing and so on.
type FuncCount struct {
	Func  string `json:"func"`
	Count int    `json:"count"`
}

// Source runs the aggregate queries. The store implements it; tests fake it.
type Source interface {
	PaperCountWithVariants(ctx context.Context) (int, error)
	VariantCount(ctx context.Context) (int, error)
	EventCount(ctx context.Context) (int, error)
	SubjectCount(ctx context.Context) (int, error)
	TopGenesByVariantCount(ctx context.Context, n int) ([]GeneCount, error)
	TopGenesByEventCount(ctx context.Context, n int) ([]GeneCount, error)
	TopEffectCategories(ctx context.Context, n int) ([]CategoryCount, error)
	TopFuncs(ctx context.Context, n int) ([]FuncCount, error)
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	TTL     time.Duration
	TopN    int
	Clock   clockwork.Clock
	Metrics *statscache.Metrics
	Logger  *slog.Logger
}

// Service holds one cache per summary figure.
type Service struct {
	topN   int
	logger *slog.Logger

	papers     *statscache.Cache[int]
	variants   *statscache.Cache[int]
	events     *statscache.Cache[int]
	subjects   *statscache.Cache[int]
	byVariants *statscache.Cache[[]GeneCount]
	byEvents   *statscache.Cache[[]GeneCount]
	categories *statscache.Cache[[]CategoryCount]
	funcs      *statscache.Cache[[]FuncCount]
}

// NewService builds the caches around src. Nothing is computed until the
// first read.
func NewService(src Source, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = statscache.DefaultTTL
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{topN: opts.TopN, logger: opts.Logger}
	cacheOpts := []statscache.Option{
		statscache.WithTTL(opts.TTL),
		statscache.WithClock(opts.Clock),
		statscache.WithMetrics(opts.Metrics),
		statscache.WithLogger(opts.Logger),
	}

	s.papers = statscache.New(MetricPaperCount, func(ctx context.Context) (int, error) {
		s.logger.Info("loading paper count")
		return src.PaperCountWithVariants(ctx)
	}, cacheOpts...)
	s.variants = statscache.New(MetricVariantCount, func(ctx context.Context) (int, error) {
		s.logger.Info("loading variant count")
		return src.VariantCount(ctx)
	}, cacheOpts...)
	s.events = statscache.New(MetricEventCount, func(ctx context.Context) (int, error) {
		s.logger.Info("loading event count")
		return src.EventCount(ctx)
	}, cacheOpts...)
	s.subjects = statscache.New(MetricSubjectCount, func(ctx context.Context) (int, error) {
		s.logger.Info("loading subject count")
		return src.SubjectCount(ctx)
	}, cacheOpts...)
	s.byVariants = statscache.New(MetricTopGenesByVariants, func(ctx context.Context) ([]GeneCount, error) {
		s.logger.Info("loading top genes by variant count", "n", s.topN)
		return src.TopGenesByVariantCount(ctx, s.topN)
	}, cacheOpts...)
	s.byEvents = statscache.New(MetricTopGenesByEvents, func(ctx context.Context) ([]GeneCount, error) {
		s.logger.Info("loading top genes by event count", "n", s.topN)
		return src.TopGenesByEventCount(ctx, s.topN)
	}, cacheOpts...)
	s.categories = statscache.New(MetricTopEffectCategories, func(ctx context.Context) ([]CategoryCount, error) {
		s.logger.Info("loading top effect categories", "n", s.topN)
		return src.TopEffectCategories(ctx, s.topN)
	}, cacheOpts...)
	s.funcs = statscache.New(MetricTopFuncs, func(ctx context.Context) ([]FuncCount, error) {
		s.logger.Info("loading top variant functions", "n", s.topN)
		return src.TopFuncs(ctx, s.topN)
	}, cacheOpts...)

	return s
}

// TopN returns the configured list length.
func (s *Service) TopN() int {
	return s.topN
}

// PaperCount returns the number of papers that report at least one variant.
func (s *Service) PaperCount(ctx context.Context) (int, error) {
	return s.papers.Get(ctx)
}

// VariantCount returns the number of variants in the database.
func (s *Service) VariantCount(ctx context.Context) (int, error) {
	return s.variants.Get(ctx)
}

// EventCount returns the number of distinct event ids.
func (s *Service) EventCount(ctx context.Context) (int, error) {
	return s.events.Get(ctx)
}

// SubjectCount returns the number of subjects with at least one variant.
func (s *Service) SubjectCount(ctx context.Context) (int, error) {
	return s.subjects.Get(ctx)
}

// TopGenesByVariantCount returns up to TopN genes ordered by how many
// variants touch them. The slice is a copy.
func (s *Service) TopGenesByVariantCount(ctx context.Context) ([]GeneCount, error) {
	v, err := s.byVariants.Get(ctx)
	return slices.Clone(v), err
}

// TopGenesByEventCount is TopGenesByVariantCount counting distinct events.
func (s *Service) TopGenesByEventCount(ctx context.Context) ([]GeneCount, error) {
	v, err := s.byEvents.Get(ctx)
	return slices.Clone(v), err
}

// TopEffectCategories returns up to TopN effect categories ordered by
// variant count.
func (s *Service) TopEffectCategories(ctx context.Context) ([]CategoryCount, error) {
	v, err := s.categories.Get(ctx)
	return slices.Clone(v), err
}

// TopFuncs returns up to TopN variant functions ordered by variant count.
func (s *Service) TopFuncs(ctx context.Context) ([]FuncCount, error) {
	v, err := s.funcs.Get(ctx)
	return slices.Clone(v), err
}

// CacheStats returns the counters of every cache keyed by metric name.
func (s *Service) CacheStats() map[string]statscache.Stats {
	return map[string]statscache.Stats{
		MetricPaperCount:          s.papers.Stats(),
		MetricVariantCount:        s.variants.Stats(),
		MetricEventCount:          s.events.Stats(),
		MetricSubjectCount:        s.subjects.Stats(),
		MetricTopGenesByVariants:  s.byVariants.Stats(),
		MetricTopGenesByEvents:    s.byEvents.Stats(),
		MetricTopEffectCategories: s.categories.Stats(),
		MetricTopFuncs:            s.funcs.Stats(),
	}
}

// Invalidate drops every cached figure, e.g. after an import.
func (s *Service) Invalidate() {
	s.papers.Invalidate()
	s.variants.Invalidate()
	s.events.Invalidate()
	s.subjects.Invalidate()
	s.byVariants.Invalidate()
	s.byEvents.Invalidate()
	s.categories.Invalidate()
	s.funcs.Invalidate()
}
