package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/alie/internal/config"
	"github.com/okian/alie/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "alie",
		Short:        "Adaptive learning inference engine",
		Long:         "alie scores learner snapshots with the skill gap, difficulty and ranking models and recommends the next adaptation.",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML config file (overrides ALIE_CONFIG)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newScoreCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig layers defaults, the optional file and ALIE_* env, then
// initializes the global logger from the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		if err := os.Setenv("ALIE_CONFIG", p); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		cmd.PrintErrln("failed to load config: " + err.Error())
		return nil, err
	}

	if err := logger.InitWithWriter(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		cmd.PrintErrln("failed to initialize logging: " + err.Error())
		return nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
