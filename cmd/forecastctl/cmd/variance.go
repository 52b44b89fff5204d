package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/variance"
)

var (
	varianceID        string
	variancePredicted string
	varianceActual    string
)

var varianceCmd = &cobra.Command{
	Use:   "variance",
	Short: "Compare a prediction with the observed actual",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if varianceID == "" {
			if variancePredicted == "" || varianceActual == "" {
				return errors.New("--forecast-id or both --predicted and --actual are required")
			}
			predicted, err := decimal.NewFromString(variancePredicted)
			if err != nil {
				return fmt.Errorf("--predicted: %w", err)
			}
			actual, err := decimal.NewFromString(varianceActual)
			if err != nil {
				return fmt.Errorf("--actual: %w", err)
			}
			return printJSON(out, variance.Analyze(predicted, actual))
		}

		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			result, err := d.Service.AnalyzeByID(ctx, varianceID)
			if err != nil {
				return err
			}
			return printJSON(out, result)
		})
	},
}

func init() {
	varianceCmd.Flags().StringVar(&varianceID, "forecast-id", "", "Analyze a stored forecast")
	varianceCmd.Flags().StringVar(&variancePredicted, "predicted", "", "Predicted amount")
	varianceCmd.Flags().StringVar(&varianceActual, "actual", "", "Actual amount")
	rootCmd.AddCommand(varianceCmd)
}
