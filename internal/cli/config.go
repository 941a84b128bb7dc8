package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage execfeed configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  execfeed config init -o execfeed.yaml
  execfeed config validate -f execfeed.yaml`,
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Long: `Write the default settings to a YAML or JSON file, chosen by extension.

Example:
  execfeed config init -o execfeed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(w, "\nEdit the file and run with:")
			fmt.Fprintf(w, "  execfeed run --config %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "execfeed.yaml", "output config file path")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Check that a configuration file loads and passes validation.

Example:
  execfeed config validate -f execfeed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(w, "  Feed: %s (%s, page %d, limit %d)\n",
				cfg.Feed.BaseURL, cfg.Crawl.ProductCode, cfg.Crawl.PageSize, cfg.Crawl.PageLimit)
			fmt.Fprintf(w, "  Retry: %d attempts, base %.1f, unit %s\n",
				cfg.Retry.MaxAttempts, cfg.Retry.BackoffBase, cfg.Retry.BackoffUnit)
			fmt.Fprintf(w, "  Output: %s (%s)\n", cfg.Output.Dir, cfg.Output.Format)
			fmt.Fprintf(w, "  Journal: %s\n", cfg.Journal.Type)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
