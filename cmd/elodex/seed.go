package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/elodex/internal/repository/model"
	indexsyncuc "github.com/kailas-cloud/elodex/internal/usecase/indexsync"
)

type seedFailure struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Status   int    `json:"status,omitempty"`
	Reason   string `json:"reason"`
}

type seedOutput struct {
	Index   string        `json:"index"`
	Table   string        `json:"table"`
	Type    string        `json:"type"`
	Batches int           `json:"batches"`
	Indexed int           `json:"indexed"`
	Skipped int           `json:"skipped"`
	Failed  []seedFailure `json:"failed,omitempty"`
}

var errSeedFailures = errors.New("some rows failed to index")

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		tbl        model.Table
		batch      int
		putMapping bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Index every row of a table",
		Long: `Read every row of a database table in key order and index it in bulk
batches. Rows that fail to index are reported and do not stop the run.
--mapping first registers a mapping derived from the column types.

Examples:
  elodex seed --table users
  elodex seed --table orders --key order_id --type order --batch 1000 --mapping`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tbl.Type == "" {
				tbl.Type = tbl.Name
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			gdb, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(gdb)
			tables := model.NewTables(gdb)

			if putMapping {
				m, err := tables.Describe(tbl)
				if err != nil {
					return err
				}
				if _, err := a.indexing().PutModelMapping(cmd.Context(), a.index, tbl.Type, m); err != nil {
					return err
				}
			}

			if batch <= 0 {
				batch = a.cfg.Index.BulkSize
			}
			svc := indexsyncuc.New(indexsyncuc.ManagerWriters{Manager: a.manager(), Index: a.index}, a.logger)
			rep, err := svc.Seed(cmd.Context(), tables, tbl, batch)
			if err != nil {
				return err
			}

			out := seedOutput{
				Index:   a.index,
				Table:   tbl.Name,
				Type:    tbl.Type,
				Batches: rep.Batches,
				Indexed: rep.Indexed,
				Skipped: rep.Skipped,
			}
			for _, f := range rep.Failed {
				sf := seedFailure{Position: f.Position, ID: f.ID}
				if f.Err != nil {
					sf.Status = f.Err.Status
					sf.Reason = f.Err.Reason
				}
				out.Failed = append(out.Failed, sf)
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if len(out.Failed) > 0 {
				return fmt.Errorf("%w: %d of %d", errSeedFailures, len(out.Failed), len(out.Failed)+rep.Indexed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tbl.Name, "table", "", "Table to read")
	cmd.Flags().StringVar(&tbl.Key, "key", "id", "Primary key column, used as the document id")
	cmd.Flags().StringVarP(&tbl.Type, "type", "t", "", "Document type (default: the table name)")
	cmd.Flags().IntVarP(&batch, "batch", "b", 0, "Rows per bulk request (default: index.bulk_size)")
	cmd.Flags().BoolVar(&putMapping, "mapping", false, "Put a mapping derived from the column types first")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
