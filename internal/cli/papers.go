package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JacobsonMT/ndb/internal/store"
)

// PapersOptions holds flags for the papers command.
type PapersOptions struct {
	*RootOptions
	Database string
}

// PaperRow is one line of the papers listing.
type PaperRow struct {
	store.Paper
	Variants int `json:"variants"`
	Events   int `json:"events"`
}

// PapersResult is the papers command's output without an id.
type PapersResult struct {
	Papers []PaperRow `json:"papers"`
}

// PaperResult is the papers command's output for one paper.
type PaperResult struct {
	Paper store.Paper `json:"paper"`
	store.PaperStats
}

// NewPapersCommand creates the papers command.
func NewPapersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PapersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "papers [paper-id]",
		Short: "List papers or break down what one paper reports",
		Long: `Without an id, list every paper with its variant and event counts.

With an id, print that paper's variants and events by effect category and
by variant function (context), and how many genes it shares with each other
paper.

Examples:
  ndb papers --db ./ndb.db
  ndb papers --db ./ndb.db 1 --format json`,
		Args:          maxArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runPapers(opts, cmd)
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return usageError(fmt.Sprintf("invalid paper id %q", args[0]), nil)
			}
			return runPaper(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func openStore(opts *RootOptions, flag string) (*store.Store, func(), error) {
	dbPath, err := opts.databasePath(flag)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, databaseError("failed to open database", err)
	}
	return st, func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger.Error("error closing database", "error", closeErr)
		}
	}, nil
}

func runPapers(opts *PapersOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, closeStore, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	papers, err := st.Papers(ctx)
	if err != nil {
		return databaseError("failed to list papers", err)
	}
	variants, err := st.VariantCountByPaper(ctx)
	if err != nil {
		return databaseError("failed to count variants", err)
	}
	events, err := st.EventCountByPaper(ctx)
	if err != nil {
		return databaseError("failed to count events", err)
	}

	result := PapersResult{Papers: make([]PaperRow, 0, len(papers))}
	for _, p := range papers {
		result.Papers = append(result.Papers, PaperRow{
			Paper:    p,
			Variants: countFor(variants, p.ID),
			Events:   countFor(events, p.ID),
		})
	}
	opts.Logger.Debug("papers listed", "count", len(result.Papers))

	return opts.formatter(cmd).Success(result, func(w io.Writer) error {
		return writePapersText(w, result)
	})
}

func runPaper(opts *PapersOptions, id int64, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, closeStore, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	paper, err := st.Paper(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeNotFound, Message: fmt.Sprintf("paper %d not found", id)}
	}
	if err != nil {
		return databaseError("failed to read paper", err)
	}
	ps, err := st.PaperStats(ctx, id)
	if err != nil {
		return databaseError("failed to compute paper statistics", err)
	}

	result := PaperResult{Paper: paper, PaperStats: ps}
	return opts.formatter(cmd).Success(result, func(w io.Writer) error {
		return writePaperText(w, result)
	})
}

func countFor(counts []store.PaperCount, paperID int64) int {
	for _, c := range counts {
		if c.PaperID == paperID {
			return c.Count
		}
	}
	return 0
}

func writePapersText(w io.Writer, r PapersResult) error {
	if len(r.Papers) == 0 {
		_, err := fmt.Fprintln(w, "(no papers)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPUBMED\tAUTHOR\tYEAR\tVARIANTS\tEVENTS")
	for _, p := range r.Papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n",
			p.ID, dashIfEmpty(p.PubmedID), dashIfEmpty(p.Author), p.Year, p.Variants, p.Events)
	}
	return tw.Flush()
}

func writePaperText(w io.Writer, r PaperResult) error {
	p := r.Paper
	fmt.Fprintf(w, "Paper %d: %s %d (PubMed %s)\n", p.ID, dashIfEmpty(p.Author), p.Year, dashIfEmpty(p.PubmedID))
	if p.Title != "" {
		fmt.Fprintln(w, p.Title)
	}
	fmt.Fprintf(w, "\nVariants: %d\nEvents:   %d\nSubjects: %d\n", r.Variants, r.Events, r.Subjects)

	sections := []struct {
		title  string
		header string
		rows   []store.LabelCount
	}{
		{"By effect category:", "CATEGORY", r.Categories},
		{"By context:", "FUNCTION", r.Contexts},
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "\n%s\n", sec.title)
		if len(sec.rows) == 0 {
			fmt.Fprintln(w, "  (none)")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  %s\tVARIANTS\tEVENTS\n", sec.header)
		for _, lc := range sec.rows {
			fmt.Fprintf(tw, "  %s\t%d\t%d\n", lc.Label, lc.Variants, lc.Events)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nGenes shared with other papers:")
	if len(r.Overlap) == 0 {
		_, err := fmt.Fprintln(w, "  (none)")
		return err
	}
	for _, o := range r.Overlap {
		fmt.Fprintf(w, "  paper %d: %d\n", o.PaperID, o.SharedGenes)
	}
	return nil
}

// maxArgs is cobra.MaximumNArgs reporting a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError("invalid arguments", err)
		}
		return nil
	}
}
