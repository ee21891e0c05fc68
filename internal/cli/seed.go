package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/index"
	"github.com/aidanlsb/tabula/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load a YAML dataset into the store",
	Long: `Load databases, tables, columns and rows from a YAML dataset.

The whole file is validated first and loaded in one transaction, so a
failing seed leaves the store unchanged.

Example dataset:
  databases:
    - id: 1
      tenant_id: 7
      name: CRM
      tables:
        - id: 10
          name: People
          columns:
            - {id: 100, name: Name, type: string, primary: true}
            - {id: 101, name: Age, type: number, order: 1}
          rows:
            - {id: 1, cells: {100: Ada, 101: 25}}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runSeed(ctx, args[0])
	},
}

type seedSummary struct {
	File      string `json:"file"`
	Databases int    `json:"databases"`
	Tables    int    `json:"tables"`
	Rows      int    `json:"rows"`
}

func runSeed(ctx context.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return handleError(ErrFileReadError, err, "")
	}
	defer f.Close()

	ds, err := index.ParseDataset(f)
	if err != nil {
		return handleError(ErrInvalidInput, err, "")
	}
	if err := ds.Validate(); err != nil {
		return handleError(ErrValidationFailed, err, "")
	}

	store, err := openStore(getConfig())
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	defer store.Close()

	if err := store.Seed(ctx, ds); err != nil {
		return handleError(ErrDatabaseError, err, "")
	}

	summary := seedSummary{File: file, Databases: len(ds.Databases)}
	for _, db := range ds.Databases {
		summary.Tables += len(db.Tables)
		for _, t := range db.Tables {
			summary.Rows += len(t.Rows)
		}
	}
	getLogger().Info("dataset seeded", "file", file, "tables", summary.Tables, "rows", summary.Rows)

	if isJSONOutput() {
		outputSuccess(summary, &Meta{Count: summary.Rows})
		return nil
	}
	fmt.Fprintln(stdout, ui.Successf("Seeded %s, %s and %s from %s",
		ui.Count(summary.Databases, "database", "databases"),
		ui.Count(summary.Tables, "table", "tables"),
		ui.Count(summary.Rows, "row", "rows"),
		ui.FilePath(file)))
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
