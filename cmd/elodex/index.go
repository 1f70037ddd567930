package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/elodex/internal/db"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage search indexes",
		Long: `Manage search indexes and their settings.

Examples:
  elodex index create products --settings settings.json
  elodex index exists products orders
  elodex index mappings products --type product
  elodex index close products`,
	}
	cmd.AddCommand(
		newIndexCreateCmd(opts),
		indexNameCmd(opts, "delete", "Delete an index", func(a *app, cmd *cobra.Command, name string) error {
			return a.indexing().Delete(cmd.Context(), name)
		}),
		indexNameCmd(opts, "open", "Open a closed index", func(a *app, cmd *cobra.Command, name string) error {
			return a.indexing().Open(cmd.Context(), name)
		}),
		indexNameCmd(opts, "close", "Close an index", func(a *app, cmd *cobra.Command, name string) error {
			return a.indexing().Close(cmd.Context(), name)
		}),
		newIndexExistsCmd(opts),
		newIndexMappingsCmd(opts),
		indexNameCmd(opts, "settings", "Show index settings", func(a *app, cmd *cobra.Command, name string) error {
			settings, err := a.indexing().Settings(cmd.Context(), name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings)
		}),
		newIndexStatsCmd(opts),
	)
	return cmd
}

// indexNameCmd builds a subcommand taking a single optional index name.
func indexNameCmd(opts *rootOptions, use, short string, run func(*app, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [name]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(a, cmd, a.target(args))
		},
	}
}

// target returns the index named on the command line, falling back to the
// --index flag and the configured default.
func (a *app) target(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.index
}

func newIndexCreateCmd(opts *rootOptions) *cobra.Command {
	var settingsPath string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an index",
		Long: `Create an index. Analyzers from index.analyzers in the config are added
to its analysis settings. --settings reads the index body from a JSON file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings map[string]any
			if settingsPath != "" {
				data, err := os.ReadFile(settingsPath)
				if err != nil {
					return fmt.Errorf("read settings: %w", err)
				}
				if err := json.Unmarshal(data, &settings); err != nil {
					return fmt.Errorf("parse settings: %w", err)
				}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			name := a.target(args)
			if err := a.indexing().Create(cmd.Context(), name, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "JSON file with the index body")
	return cmd
}

func newIndexExistsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists [name...]",
		Short: "Report whether every named index exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = []string{a.index}
			}
			ok, err := a.indexing().Exists(cmd.Context(), names...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func newIndexMappingsCmd(opts *rootOptions) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "mappings [name]",
		Short: "Show stored mappings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.indexing().Mappings(cmd.Context(), a.target(args), docType)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "", "Document type (default: all types)")
	return cmd
}

func newIndexStatsCmd(opts *rootOptions) *cobra.Command {
	var metrics []string
	cmd := &cobra.Command{
		Use:   "stats [name]",
		Short: "Show index statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.indexing().Stats(cmd.Context(), a.target(args), metrics...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringSliceVar(&metrics, "metric", nil, "Restrict to these metrics (e.g. docs,store)")
	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var analyzer, field string
	cmd := &cobra.Command{
		Use:   "analyze <text>...",
		Short: "Run text through an analyzer",
		Long: `Run text through an analyzer of the index selected with --index. Without
--analyzer the analyzer of --field is used.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.indexing().Analyze(cmd.Context(), &db.AnalyzeRequest{
				Index:    a.index,
				Analyzer: analyzer,
				Field:    field,
				Text:     args,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tokens)
		},
	}
	cmd.Flags().StringVarP(&analyzer, "analyzer", "a", "", "Analyzer name")
	cmd.Flags().StringVarP(&field, "field", "f", "", "Field whose analyzer to use")
	return cmd
}
