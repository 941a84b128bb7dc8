package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/config"
)

type crawlFlags struct {
	product string
	count   int
	pages   int
	single  bool
	delay   time.Duration
	out     string
	format  string
}

// applyCrawlFlags copies the flags the user actually set onto cfg.
func applyCrawlFlags(cmd *cobra.Command, f *crawlFlags, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("product") {
		cfg.Crawl.ProductCode = f.product
	}
	if fl.Changed("count") {
		cfg.Crawl.PageSize = f.count
	}
	if fl.Changed("pages") {
		cfg.Crawl.PageLimit = f.pages
	}
	if fl.Changed("single") {
		cfg.Crawl.Exhaustive = !f.single
	}
	if fl.Changed("delay") {
		cfg.Crawl.RequestDelay = f.delay.String()
	}
	if fl.Changed("out") {
		cfg.Output.Dir = f.out
	}
	if fl.Changed("format") {
		cfg.Output.Format = f.format
	}
}

func addCrawlFlags(cmd *cobra.Command, f *crawlFlags) {
	cmd.Flags().StringVarP(&f.product, "product", "p", "BTC_JPY", "product code, e.g. BTC_JPY")
	cmd.Flags().IntVarP(&f.count, "count", "n", 100, "executions per page (1-1000)")
	cmd.Flags().IntVar(&f.pages, "pages", 20, "maximum pages to fetch, 0 for no cap")
	cmd.Flags().BoolVar(&f.single, "single", false, "fetch one page only")
	cmd.Flags().DurationVar(&f.delay, "delay", time.Second, "pause between page requests")
	cmd.Flags().StringVarP(&f.out, "out", "o", "./output", "output directory")
	cmd.Flags().StringVar(&f.format, "format", "json", "output format: json|csv|parquet")
}

func newCrawlCmd(rc *RootConfig) *cobra.Command {
	f := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch executions and write them to a file",
		Long: `Page backward through the execution feed and save what was collected.
No candles are built; use "execfeed candles" on the output afterwards.

Flags override the config file only when given.

Examples:
  execfeed crawl --product BTC_JPY --pages 5
  execfeed crawl --single --count 500 --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rc, func(cfg *config.Config) { applyCrawlFlags(cmd, f, cfg) })
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.runner(true)
			if err != nil {
				return err
			}
			rep, err := r.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), rep)
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			return nil
		},
	}
	addCrawlFlags(cmd, f)
	return cmd
}
