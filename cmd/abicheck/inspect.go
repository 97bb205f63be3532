package main

import (
	"github.com/spf13/cobra"

	"github.com/woxQAQ/orgcreds-wasm/internal/harness"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "Check a single Wasm file",
		Long: `The inspect command checks one Wasm file without a manifest. Credentials
and probe sizes still come from the configuration.

Example:
  abicheck inspect target/wasm32-wasip1/release/guest.wasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext(logger)
	defer cancel()

	h, err := harness.NewHarness(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close(ctx)

	rep, err := h.CheckFile(ctx, path)
	if err != nil {
		return err
	}

	return writeReport(cmd, rep, cfg.ReportFormat)
}
