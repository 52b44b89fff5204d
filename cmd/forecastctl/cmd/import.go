package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/normalization"
	"forecast-guard/internal/storage"
)

var importFile string

type importSummary struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import forecast documents from a JSON file",
	Long: `Reads a JSON array of forecast documents (or a single document), maps
field aliases such as total_predicted_expenses or upper_confidence_bound onto
the canonical schema, stores each record and queues it for validation.
Use --file - to read from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFile == "" {
			return errors.New("--file is required")
		}

		var in io.Reader = cmd.InOrStdin()
		if importFile != "-" {
			f, err := os.Open(importFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		records, err := normalization.DecodeJSON(in)
		if err != nil {
			return err
		}

		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			var summary importSummary
			for _, r := range records {
				err := d.Store.Insert(ctx, r)
				switch {
				case errors.Is(err, storage.ErrDuplicateKey):
					summary.Duplicates++
					continue
				case err != nil:
					summary.Errors++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.ID, err)
					if errors.Is(err, storage.ErrUnavailable) {
						_ = printLine(cmd.OutOrStdout(), summary)
						return err
					}
					continue
				}
				summary.Imported++

				if d.Queue != nil {
					if err := d.Queue.Enqueue(ctx, r.ID); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: enqueue: %v\n", r.ID, err)
					}
				}
			}

			if err := printLine(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if summary.Errors > 0 {
				return errFailed
			}
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "JSON file to import (- for stdin)")
	rootCmd.AddCommand(importCmd)
}
