package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"forecast-guard/internal/events"
	"forecast-guard/internal/logging"
)

var (
	watchURL   string
	watchTypes []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream validation events from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		stream, err := events.Watch(ctx, watchURL, nil, logging.For("watch"))
		if err != nil {
			return err
		}

		wanted := make(map[string]bool, len(watchTypes))
		for _, t := range watchTypes {
			wanted[t] = true
		}

		out := cmd.OutOrStdout()
		for e := range stream {
			if len(wanted) > 0 && !wanted[e.Type] {
				continue
			}
			fmt.Fprintf(out, "%s  %-12s %-16s %-8s %s\n",
				e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Type, e.ForecastID, e.Severity, e.Message)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:9090/ws", "Event stream URL of forecast-server")
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only show these event types (validation, repair, repair_error, quality)")
	rootCmd.AddCommand(watchCmd)
}
