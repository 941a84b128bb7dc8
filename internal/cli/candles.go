package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/config"
	"github.com/rustyeddy/execfeed/pipeline"
)

func newCandlesCmd(rc *RootConfig) *cobra.Command {
	var (
		in, out, ordering, format string
		fillGaps                  bool
	)

	cmd := &cobra.Command{
		Use:   "candles",
		Short: "Build candles from a saved executions file",
		Long: `Aggregate an executions file written by "execfeed crawl" into
one-minute OHLCV candles with VWAP. The input format is taken from the
file extension (.json, .csv, .parquet, optionally .xz).

Examples:
  execfeed candles --in output/executions_01J....json
  execfeed candles --in ex.csv.xz --out ex_candles.csv --fill-gaps`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rc, func(cfg *config.Config) {
				fl := cmd.Flags()
				if fl.Changed("fill-gaps") {
					cfg.Candles.FillGaps = fillGaps
				}
				if fl.Changed("ordering") {
					cfg.Candles.Ordering = ordering
				}
				if fl.Changed("format") {
					cfg.Output.Format = format
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			saver, err := a.cfg.Saver()
			if err != nil {
				return err
			}
			if out == "" {
				out = pipeline.CandlesPathFor(in, saver)
			}

			cs, err := pipeline.AggregateFile(in, out, saver, a.cfg.CandleOptions(), a.cfg.Seed())
			if err != nil {
				return fmt.Errorf("candles: %w", err)
			}
			a.log.Info("candles saved", "in", in, "out", out, "count", len(cs))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d candles: %s\n", len(cs), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "executions file (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "candles file (default: next to the input)")
	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "emit flat candles for minutes with no trades")
	cmd.Flags().StringVar(&ordering, "ordering", "id", "order within a minute: id|arrival")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|csv|parquet")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
