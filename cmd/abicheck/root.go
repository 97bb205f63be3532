package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/orgcreds-wasm/internal/config"
	"github.com/woxQAQ/orgcreds-wasm/pkg/report"
)

var (
	// Global flags
	configPath string
	logLevel   string
	format     string
)

// errChecksFailed is returned when a report contains a failing check.
var errChecksFailed = errors.New("abi checks failed")

var rootCmd = &cobra.Command{
	Use:   "abicheck",
	Short: "Check Wasm guests against the org credentials boundary ABI",
	Long: `abicheck loads Wasm guests and verifies they export memory, allocate and
deallocate with the expected signatures, import only the env credential
accessors, and run a working allocator.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Report format (json, yaml); overrides the config")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// loadConfig applies the global flags on top of the loaded configuration.
func loadConfig() (*config.HarnessConfig, error) {
	cfg, err := config.LoadHarnessConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if format != "" {
		cfg.ReportFormat = format
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout carries only the report.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}

	return zcfg.Build()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// writeReport encodes rep to cmd's output and maps failures to errChecksFailed.
func writeReport(cmd *cobra.Command, rep *report.Report, name string) error {
	f, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	if err := rep.Encode(cmd.OutOrStdout(), f); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !rep.Passed() {
		return errChecksFailed
	}
	return nil
}
