package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	index      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "elodex",
		Short: "Mirror relational entities into a search index",
		Long: `elodex keeps a search index in sync with a relational entity store and
queries it back.

Configuration is read from --config, or from config/<ENV>.yaml when the flag
is not set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML config file")
	root.PersistentFlags().StringVarP(&opts.index, "index", "i", "", "Index name (default: index.default_index)")

	root.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newAnalyzeCmd(opts),
		newSeedCmd(opts),
		newSearchCmd(opts),
		newCountCmd(opts),
		newVersionCmd(),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
