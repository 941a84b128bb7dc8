package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// RootConfig holds the persistent flags shared by every command.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	Pyroscope  string
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "execfeed",
		Short: "Crawl venue executions and build one-minute candles",
		Long: `execfeed pages backward through a venue's public execution feed
(bitFlyer getexecutions), retrying transient failures with exponential
backoff, and aggregates the executions into OHLCV candles with VWAP.

Examples:
  execfeed run --config execfeed.yaml
  execfeed crawl --product ETH_JPY --pages 5
  execfeed candles --in output/executions_01J....json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.LogFile, "log-file", "", "Also append logs to this file (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.Pyroscope, "pyroscope", "", "Pyroscope server address; empty disables profiling")

	cmd.AddCommand(
		newCrawlCmd(rc),
		newCandlesCmd(rc),
		newRunCmd(rc),
		newConfigCmd(),
		newJournalCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the command tree until it returns or SIGINT/SIGTERM arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
