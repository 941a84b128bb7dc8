package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/config"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	f := &crawlFlags{}
	var fillGaps bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl executions and build candles in one pass",
		Long: `Run a full session: crawl the feed, save the executions, aggregate
them into candles, save those, and record the run in the journal.

A cancelled run (Ctrl-C) saves what it has as a .partial file.
An aborted run saves nothing.

Examples:
  execfeed run --config execfeed.yaml
  execfeed run --product ETH_JPY --pages 0 --fill-gaps`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rc, func(cfg *config.Config) {
				applyCrawlFlags(cmd, f, cfg)
				if cmd.Flags().Changed("fill-gaps") {
					cfg.Candles.FillGaps = fillGaps
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.runner(false)
			if err != nil {
				return err
			}
			rep, err := r.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), rep)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}
	addCrawlFlags(cmd, f)
	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "emit flat candles for minutes with no trades")
	return cmd
}
