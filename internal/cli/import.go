package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JacobsonMT/ndb/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult is the import command's output.
type ImportResult struct {
	Database string `json:"database"`
	File     string `json:"file"`
	store.ImportResult
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <dataset.yaml>",
		Short: "Load papers and variants from a YAML dataset",
		Long: `Load papers and variants from a YAML dataset into the database.

The whole file is validated first and written in one transaction: either
every record is imported or none is. Records already present are replaced,
so re-importing a corrected file is safe.

Examples:
  ndb import --db ./ndb.db testdata/dataset.yaml
  ndb import --db ./ndb.db variants.yaml --format json`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runImport(opts *ImportOptions, file string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := opts.Logger

	dbPath, err := opts.databasePath(opts.Database)
	if err != nil {
		return err
	}

	ds, err := store.LoadDataset(file)
	if err != nil {
		return usageError("failed to load dataset", err)
	}
	log.Debug("dataset loaded", "file", file, "papers", len(ds.Papers), "variants", len(ds.Variants))

	st, err := store.Open(dbPath)
	if err != nil {
		return databaseError("failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	res, err := st.Import(ctx, ds)
	if err != nil {
		return databaseError("import failed", err)
	}
	log.Info("dataset imported", "database", dbPath, "variants", res.Variants, "papers", res.Papers)

	result := ImportResult{Database: dbPath, File: file, ImportResult: res}
	return opts.formatter(cmd).Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Imported %d variants (%d papers, %d genes) into %s\n",
			res.Variants, res.Papers, res.Genes, dbPath)
		return err
	})
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError("invalid arguments", err)
		}
		return nil
	}
}
