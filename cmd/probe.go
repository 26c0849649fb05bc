package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/alie/internal/loadgen"

	"github.com/spf13/cobra"
)

// Default probe configuration constants.
const (
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func newProbeCmd() *cobra.Command {
	cfg := &loadgen.Config{}

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Send randomized snapshots to a running service and verify every response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			total, _ := cmd.Flags().GetDuration("total-timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), total)
			defer cancel()

			stats, err := loadgen.Run(ctx, cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted=%d successful=%d rejected=%d rate_limited=%d failed=%d violations=%d\n",
					stats.Submitted, stats.Successful, stats.Rejected, stats.RateLimited, stats.Failed, stats.ContractViolations)
			}
			return err
		},
	}

	f := probeCmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:8000", "Base URL of the service")
	f.IntVar(&cfg.Requests, "requests", loadgen.DefaultRequests, "Number of snapshots to generate and submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.APIKey, "api-key", "", "X-API-Key sent with every prediction")
	f.StringVar(&cfg.OutputFile, "output", "", "Write the generated snapshots to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every contract violation")
	f.Duration("total-timeout", defaultProbeTimeout, "Upper bound for the whole probe")
	return probeCmd
}
