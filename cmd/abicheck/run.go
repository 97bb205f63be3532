package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/orgcreds-wasm/internal/harness"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check every guest under the configured guest paths",
		Long: `The run command discovers guests (directories holding a manifest.yaml),
checks each one and prints a report. It exits non-zero if any check fails.

Example:
  abicheck run --config abicheck.yaml
  ORGCREDS_GUEST_PATHS=./guests abicheck run --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd)
		},
	}
}

func runRun(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting abicheck",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	h, err := harness.NewHarness(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close(ctx)

	rep, err := h.Run(ctx)
	if err != nil {
		return err
	}

	return writeReport(cmd, rep, cfg.ReportFormat)
}
