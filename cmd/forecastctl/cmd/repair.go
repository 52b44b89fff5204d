package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/storage"
	"forecast-guard/internal/verification"
)

var (
	repairID      string
	repairAll     bool
	repairDryRun  bool
	repairYes     bool
	repairVerify  bool
	repairCompany string
)

// repairSummary is the one-line result printed after every batch.
type repairSummary struct {
	Fixed   int  `json:"fixed"`
	Errors  int  `json:"errors"`
	Skipped int  `json:"skipped"`
	DryRun  bool `json:"dry_run,omitempty"`
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Swap inverted prediction bounds",
	Long: `Swaps upper and lower bounds of forecasts whose upper bound is below the
lower bound. Records with equal bounds or other critical findings are skipped.
A batch repair asks for confirmation unless --yes is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (repairID == "") == !repairAll {
			return errors.New("exactly one of --forecast-id or --all is required")
		}

		opts := bootstrap.Options{DryRun: repairDryRun}
		return withDeps(cmd, opts, func(ctx context.Context, d *bootstrap.Deps) error {
			out := cmd.OutOrStdout()

			if repairID != "" {
				result, err := d.Service.RepairByID(ctx, repairID)
				if err != nil {
					return err
				}
				return printJSON(out, result)
			}

			filter := storage.ForecastFilter{Company: repairCompany}
			if !repairYes && !repairDryRun {
				inverted, err := d.Store.List(ctx, storage.ForecastFilter{Company: repairCompany, OnlyInvertedBounds: true})
				if err != nil {
					return err
				}
				if len(inverted) == 0 {
					fmt.Fprintln(out, "No forecasts with inverted bounds.")
					return printLine(out, repairSummary{})
				}
				ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Swap bounds of %d forecasts?", len(inverted)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			batch, err := d.Service.RepairAll(ctx, filter)
			if batch != nil {
				for _, e := range batch.ErrorDetails {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", e.ForecastID, e.Kind, e.Message)
				}
				if perr := printLine(out, repairSummary{
					Fixed:   batch.Fixed,
					Errors:  batch.Errors,
					Skipped: batch.Skipped,
					DryRun:  repairDryRun,
				}); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

			if repairVerify && !repairDryRun {
				report, err := verification.VerifyRepairs(ctx, d.Store, batch)
				if err != nil {
					return err
				}
				if err := printJSON(out, report); err != nil {
					return err
				}
				if report.Divergent > 0 {
					return errFailed
				}
			}

			if batch.Errors > 0 {
				return errFailed
			}
			return nil
		})
	},
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	repairCmd.Flags().StringVar(&repairID, "forecast-id", "", "Repair a single forecast")
	repairCmd.Flags().BoolVar(&repairAll, "all", false, "Repair every stored forecast")
	repairCmd.Flags().StringVar(&repairCompany, "company", "", "Only forecasts of this company (with --all)")
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Report what would be repaired without writing")
	repairCmd.Flags().BoolVar(&repairYes, "yes", false, "Skip the confirmation prompt")
	repairCmd.Flags().BoolVar(&repairVerify, "verify", false, "Re-read repaired forecasts and verify the stored bounds")
	rootCmd.AddCommand(repairCmd)
}
