package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanInterval time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a discovery cycle",
	Long:  "Runs one full discovery cycle: fetch feeds, select deals, price, gate, notify. With --interval, keeps running cycles until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		for {
			result, err := e.Planner.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			fmt.Printf("cycle %s: %s (candidates=%d deals=%d)\n",
				result.ID, result.Outcome, result.CandidateCount, result.DealCount)
			if result.Best != nil {
				fmt.Printf("  best: %s price=$%.2f estimate=$%.2f discount=$%.2f\n",
					result.Best.Deal.URL, result.Best.Deal.Price,
					result.Best.Estimate, result.Best.Discount)
			}

			if scanInterval <= 0 {
				return nil
			}
			zap.L().Info("sleeping until next cycle", zap.Duration("interval", scanInterval))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(scanInterval):
			}
		}
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanInterval, "interval", 0, "run cycles continuously at this interval (e.g. 1h)")
	rootCmd.AddCommand(scanCmd)
}
