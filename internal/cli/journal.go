package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the run journal",
		Long: `Query and display crawl runs recorded in the SQLite journal.

Subcommands:
  list  - List recent runs, newest first
  show  - Show one run in full
  day   - List runs started on a specific day

Examples:
  execfeed journal list --limit 10
  execfeed journal show 01J9Z8Q4W1X2Y3Z4A5B6C7D8E9
  execfeed journal day 2024-01-15`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (default: from config)")

	open := func() (*journal.SQLite, error) {
		path := dbPath
		if path == "" {
			cfg, err := loadConfig(rc)
			if err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			path = cfg.Journal.DBPath
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRunLine(r))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show details of a specific run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRun(rec))
			return nil
		},
	}

	day := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List runs started on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			start, end, err := dayBounds(time.Local, args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			runs, err := j.ListRunsBetween(start, end)
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatRuns(runs))
			return nil
		},
	}

	cmd.AddCommand(list, show, day)
	return cmd
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
