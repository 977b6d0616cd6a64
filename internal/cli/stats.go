package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/JacobsonMT/ndb/internal/stats"
	"github.com/JacobsonMT/ndb/internal/statscache"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	TopN     int

	// Metrics is where the cache metrics are written after the run, in the
	// Prometheus text format. "-" means stderr; empty disables them.
	Metrics string
}

// StatsResult is the stats command's output.
type StatsResult struct {
	TopN int `json:"top_n"`
	stats.Summary
	Cache map[string]statscache.Stats `json:"cache,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print database-wide statistics",
		Long: `Print paper, variant, event and subject counts and the top genes and
effect categories.

Each figure is computed through its own cache (TTL from cache.ttl, default
one hour). With --verbose the cache counters are included in the output.
--metrics writes the cache metrics in the Prometheus text format, to a file
(for a node exporter textfile collector) or to stderr with "-".

Examples:
  ndb stats --db ./ndb.db
  ndb stats --db ./ndb.db --top 10 --format json
  ndb stats --db ./ndb.db --metrics /var/lib/node_exporter/ndb.prom`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().IntVar(&opts.TopN, "top", 0, "length of the top lists (default from config)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", `write cache metrics in Prometheus text format to a file ("-" for stderr)`)

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := opts.Logger

	topN := opts.Config.Cache.TopN
	if cmd.Flags().Changed("top") {
		if opts.TopN < 1 {
			return usageError(fmt.Sprintf("--top must be at least 1, got %d", opts.TopN), nil)
		}
		topN = opts.TopN
	}

	st, closeStore, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	metrics, err := statscache.NewMetrics(reg)
	if err != nil {
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeStats, Message: "failed to register metrics", Err: err}
	}

	svc := stats.NewService(st, stats.Options{
		TTL:     opts.Config.Cache.TTL,
		TopN:    topN,
		Metrics: metrics,
		Logger:  log,
	})

	sum, err := svc.Summary(ctx)
	if err != nil {
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeStats, Message: "statistics unavailable", Err: err}
	}

	if opts.Metrics != "" {
		if err := writeMetrics(reg, opts.Metrics, cmd.ErrOrStderr()); err != nil {
			return &ExitError{Code: ExitFailure, ErrCode: ErrCodeStats, Message: "failed to write metrics", Err: err}
		}
		log.Debug("cache metrics written", "to", opts.Metrics)
	}

	result := StatsResult{TopN: svc.TopN(), Summary: sum}
	if opts.Verbose {
		result.Cache = svc.CacheStats()
	}

	return opts.formatter(cmd).Success(result, func(w io.Writer) error {
		return writeStatsText(w, result)
	})
}

func writeStatsText(w io.Writer, r StatsResult) error {
	fmt.Fprintf(w, "Papers with variants: %d\n", r.Papers)
	fmt.Fprintf(w, "Variants:             %d\n", r.Variants)
	fmt.Fprintf(w, "Events:               %d\n", r.Events)
	fmt.Fprintf(w, "Subjects:             %d\n", r.Subjects)

	fmt.Fprintf(w, "\nTop %d genes by variant count:\n", r.TopN)
	writeGeneCounts(w, r.TopGenesByVariants)
	fmt.Fprintf(w, "\nTop %d genes by event count:\n", r.TopN)
	writeGeneCounts(w, r.TopGenesByEvents)

	fmt.Fprintf(w, "\nTop %d effect categories:\n", r.TopN)
	if len(r.TopEffectCategories) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, c := range r.TopEffectCategories {
		fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, c.Category, c.Count)
	}

	fmt.Fprintf(w, "\nTop %d variant functions:\n", r.TopN)
	if len(r.TopFuncs) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, f := range r.TopFuncs {
		fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, f.Func, f.Count)
	}

	if len(r.Cache) > 0 {
		fmt.Fprintln(w, "\nCache:")
		for _, name := range cacheOrder {
			s, ok := r.Cache[name]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %s: hits=%d misses=%d refreshes=%d failures=%d\n",
				name, s.Hits, s.Misses, s.Refreshes, s.Failures)
		}
	}
	return nil
}

// writeMetrics gathers reg and writes it in the text exposition format to
// path, or to stderr when path is "-". Files are replaced atomically.
func writeMetrics(reg prometheus.Gatherer, path string, stderr io.Writer) error {
	if path != "-" {
		return prometheus.WriteToTextfile(path, reg)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

var cacheOrder = []string{
	stats.MetricPaperCount,
	stats.MetricVariantCount,
	stats.MetricEventCount,
	stats.MetricSubjectCount,
	stats.MetricTopGenesByVariants,
	stats.MetricTopGenesByEvents,
	stats.MetricTopEffectCategories,
	stats.MetricTopFuncs,
}

func writeGeneCounts(w io.Writer, genes []stats.GeneCount) {
	if len(genes) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, g := range genes {
		fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, g.Symbol, g.Count)
	}
}
