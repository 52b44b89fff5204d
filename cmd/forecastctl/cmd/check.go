package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/bounds"
	"forecast-guard/internal/storage"
)

var (
	checkID      string
	checkAll     bool
	checkCompany string
	checkType    string
	checkJSON    bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate bounds, required fields and confidence of forecasts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (checkID == "") == !checkAll {
			return errors.New("exactly one of --forecast-id or --all is required")
		}

		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			out := cmd.OutOrStdout()

			if checkID != "" {
				result, err := d.Service.CheckByID(ctx, checkID)
				if err != nil {
					return err
				}
				return printJSON(out, result)
			}

			results, err := d.Service.CheckAll(ctx, storage.ForecastFilter{
				Company:      checkCompany,
				ForecastType: checkType,
			})
			if err != nil {
				return err
			}
			summary := bounds.Summarize(results)

			if checkJSON {
				return printJSON(out, map[string]any{"summary": summary, "results": results})
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "FORECAST\tSEVERITY\tFINDINGS")
			for _, r := range results {
				messages := make([]string, 0, len(r.Findings))
				for _, f := range r.Findings {
					messages = append(messages, f.Message)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ForecastID, r.Severity, strings.Join(messages, "; "))
			}
			w.Flush()

			fmt.Fprintf(out, "\n%d checked: %d critical, %d warning, %d ok, %d skipped (%d inverted)\n",
				summary.Total, summary.Critical, summary.Warning, summary.OK, summary.Skipped, summary.Inverted)
			return nil
		})
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkID, "forecast-id", "", "Validate a single forecast")
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Validate every stored forecast")
	checkCmd.Flags().StringVar(&checkCompany, "company", "", "Only forecasts of this company (with --all)")
	checkCmd.Flags().StringVar(&checkType, "type", "", "Only forecasts of this forecast type (with --all)")
	checkCmd.Flags().BoolVar(&checkJSON, "output-json", false, "Print results as JSON (with --all)")
	rootCmd.AddCommand(checkCmd)
}
