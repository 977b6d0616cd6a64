package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JacobsonMT/ndb/internal/event"
	"github.com/JacobsonMT/ndb/internal/variant"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Database string
	Gene     string
	Region   string
	Sort     string
	Partial  bool // only the matching variants, not their whole events
}

// EventsResult is the events command's output.
type EventsResult struct {
	Query    string        `json:"query"`
	Sort     string        `json:"sort"`
	Complex  bool          `json:"complex"`
	Variants int           `json:"variants"`
	Events   []event.Event `json:"events"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Group the variants of a gene or region into events",
		Long: `Search variants by gene symbol or genomic region, group them into
events and print the events in the requested order.

By default every variant of a matched event is loaded, so an event that
only partly overlaps the search is still judged complex on all of its loci.
Use --partial to group only the matching variants.

Sort keys: genes, effects, papers, location.

Examples:
  ndb events --db ./ndb.db --gene TP53
  ndb events --db ./ndb.db --region chr17:7570000-7590000 --sort genes
  ndb events --db ./ndb.db --gene SCN2A --format json`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Gene, "gene", "", "gene symbol to search")
	cmd.Flags().StringVar(&opts.Region, "region", "", "region to search, chr:start-stop")
	cmd.Flags().StringVar(&opts.Sort, "sort", "location", "sort key ("+strings.Join(event.ComparatorNames, "|")+")")
	cmd.Flags().BoolVar(&opts.Partial, "partial", false, "group only the matching variants")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := opts.Logger

	if (opts.Gene == "") == (opts.Region == "") {
		return usageError("exactly one of --gene or --region is required", nil)
	}
	by, err := event.ComparatorByName(opts.Sort)
	if err != nil {
		return usageError("invalid sort key", err)
	}

	var region variant.Region
	query := "gene:" + variant.NormalizeSymbol(opts.Gene)
	if opts.Region != "" {
		region, err = variant.ParseRegion(opts.Region)
		if err != nil {
			return usageError("invalid region", err)
		}
		query = "region:" + region.String()
	}

	st, closeStore, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	var records []variant.Record
	if opts.Gene != "" {
		records, err = st.VariantsByGene(ctx, opts.Gene)
	} else {
		records, err = st.VariantsByRegion(ctx, region)
	}
	if err != nil {
		return databaseError("variant search failed", err)
	}
	log.Debug("variants matched", "query", query, "count", len(records))

	if !opts.Partial && len(records) > 0 {
		records, err = st.VariantsByEvent(ctx, eventIDs(records)...)
		if err != nil {
			return databaseError("event expansion failed", err)
		}
		log.Debug("events expanded", "variants", len(records))
	}

	events, err := event.Group(records, opts.Config.GroupingOptions()...)
	if err != nil {
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeIntegrity, Message: "grouping failed", Err: err}
	}
	event.Sort(events, by)

	result := EventsResult{
		Query:    query,
		Sort:     strings.ToLower(strings.TrimSpace(opts.Sort)),
		Complex:  event.AnyComplex(events),
		Variants: len(records),
		Events:   events,
	}
	log.Info("events grouped", "query", query, "events", len(events), "complex", result.Complex)

	return opts.formatter(cmd).Success(result, func(w io.Writer) error {
		return writeEventsText(w, result)
	})
}

// eventIDs returns the distinct event ids of records in first-seen order.
func eventIDs(records []variant.Record) []int64 {
	seen := make(map[int64]bool, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		if r.EventID == 0 || seen[r.EventID] {
			continue
		}
		seen[r.EventID] = true
		ids = append(ids, r.EventID)
	}
	return ids
}

func writeEventsText(w io.Writer, result EventsResult) error {
	fmt.Fprintf(w, "Events for %s (sorted by %s)\n", result.Query, result.Sort)
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return nil
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tLOCATION\tGENES\tEFFECTS\tPAPERS\tVARIANTS\tCOMPLEX")
	for i := range result.Events {
		e := &result.Events[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.EventID,
			e.Location(),
			dashIfEmpty(strings.Join(e.Genes, ",")),
			dashIfEmpty(strings.Join(e.Effects, ",")),
			dashIfEmpty(joinIDs(e.Papers)),
			len(e.Variants),
			yesNo(e.Complex),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d events, %d variants", len(result.Events), result.Variants)
	if result.Complex {
		summary += "; complex events present"
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// noArgs is cobra.NoArgs reporting a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError("invalid arguments", err)
	}
	return nil
}
