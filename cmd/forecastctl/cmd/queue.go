package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
)

var queueDrainMax int

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the update queue",
}

var queueEnqueueCmd = &cobra.Command{
	Use:   "enqueue [id...]",
	Short: "Queue forecasts for re-validation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd, func(ctx context.Context, d *bootstrap.Deps) error {
			failed := false
			for _, id := range args {
				if err := d.Queue.Enqueue(ctx, id); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
					failed = true
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", id)
			}
			if failed {
				return errFailed
			}
			return nil
		})
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Remove and print queued forecast ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd, func(ctx context.Context, d *bootstrap.Deps) error {
			items, err := d.Queue.Drain(ctx, queueDrainMax)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		})
	},
}

var queueLenCmd = &cobra.Command{
	Use:   "len",
	Short: "Print the number of queued forecasts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd, func(ctx context.Context, d *bootstrap.Deps) error {
			n, err := d.Queue.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

func withQueue(cmd *cobra.Command, fn func(ctx context.Context, d *bootstrap.Deps) error) error {
	return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
		if d.Queue == nil {
			return errors.New("no update queue configured: set --redis-addr")
		}
		return fn(ctx, d)
	})
}

func init() {
	queueDrainCmd.Flags().IntVar(&queueDrainMax, "max", 0, "Maximum ids to drain (0 = all)")
	queueCmd.AddCommand(queueEnqueueCmd, queueDrainCmd, queueLenCmd)
	rootCmd.AddCommand(queueCmd)
}
