package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
	"github.com/kailas-cloud/elodex/internal/domain/search/result"
	"github.com/kailas-cloud/elodex/internal/repository/index"
	"github.com/kailas-cloud/elodex/internal/repository/model"
)

// searchFlags describe a search on the command line.
type searchFlags struct {
	docType    string
	text       string
	body       string
	size       int
	from       int
	sorts      []string
	highlights []string
}

func (f *searchFlags) register(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringVarP(&f.docType, "type", "t", "", "Document type")
	cmd.Flags().StringVarP(&f.text, "query", "q", "", "Query string, e.g. title:go AND views:>10")
	if !paging {
		return
	}
	cmd.Flags().StringVar(&f.body, "body", "", "Raw JSON search body; overrides the other query flags")
	cmd.Flags().IntVarP(&f.size, "size", "n", 10, "Page size")
	cmd.Flags().IntVar(&f.from, "from", 0, "Hits to skip")
	cmd.Flags().StringSliceVarP(&f.sorts, "sort", "s", nil, "Sort as field[:asc|desc], repeatable")
	cmd.Flags().StringSliceVar(&f.highlights, "highlight", nil, "Fields to highlight")
	_ = cmd.MarkFlagRequired("type")
}

// build turns the flags into a query. Without --query every document matches.
func (f *searchFlags) build() *query.Search {
	q := query.New()
	if f.text != "" {
		q.QueryString(f.text)
	}
	if f.size > 0 {
		q.Limit(f.size)
	}
	if f.from > 0 {
		q.Offset(f.from)
	}
	for _, spec := range f.sorts {
		field, dir, _ := strings.Cut(spec, ":")
		order := query.Asc
		if strings.EqualFold(dir, "desc") {
			order = query.Desc
		}
		q.Sort(field, order)
	}
	for _, field := range f.highlights {
		q.Highlight(field)
	}
	return q
}

// repository returns a repository of generic table records of docType.
func (a *app) repository(docType string) (*index.Repository, error) {
	return a.manager().Repository(model.NewRecord(docType, "id", nil), a.index)
}

type hitOutput struct {
	ID        string              `json:"id"`
	Score     *float64            `json:"score,omitempty"`
	Source    map[string]any      `json:"source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

type searchOutput struct {
	Total int64       `json:"total"`
	Took  int         `json:"took"`
	Hits  []hitOutput `json:"hits"`
}

func hitsOf(res *result.Result) []hitOutput {
	hits := make([]hitOutput, 0, res.Len())
	for _, d := range res.Documents() {
		h := hitOutput{ID: d.ID, Source: d.Source}
		if meta, ok := res.Metadata(d.ID); ok {
			h.Score = meta.Score
			h.Highlight = meta.Highlight
		}
		hits = append(hits, h)
	}
	return hits
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		f   searchFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search documents of one type",
		Long: `Search documents of one type in the index selected with --index.

Examples:
  elodex search --type product -q 'name:lamp' --sort price:desc
  elodex search --type product --body '{"query":{"match":{"name":"lamp"}}}'
  elodex search --type product --all --size 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if f.body != "" {
				return searchRaw(cmd, a, f.docType, f.body)
			}
			repo, err := a.repository(f.docType)
			if err != nil {
				return err
			}
			if all {
				return scrollAll(cmd, a, repo, f.build())
			}
			res, err := repo.Search(cmd.Context(), f.build())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), searchOutput{Total: res.Total(), Took: res.Took(), Hits: hitsOf(res)})
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&all, "all", false, "Walk every hit with a scroll cursor, printing one JSON line per document")
	return cmd
}

func searchRaw(cmd *cobra.Command, a *app, docType, raw string) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	resp, err := a.transport.Search(cmd.Context(), &db.SearchRequest{
		Index: a.index,
		Types: []string{docType},
		Body:  body,
	})
	if err != nil {
		return err
	}
	res := result.New(resp, nil)
	return printJSON(cmd.OutOrStdout(), searchOutput{Total: res.Total(), Took: res.Took(), Hits: hitsOf(res)})
}

func scrollAll(cmd *cobra.Command, a *app, repo *index.Repository, q *query.Search) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	q.Scroll(a.cfg.Index.Scroll())
	return repo.Scroll(cmd.Context(), q, func(_ context.Context, page *result.Result) error {
		for _, h := range hitsOf(page) {
			if err := enc.Encode(h); err != nil {
				return err
			}
		}
		return nil
	})
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count documents of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.repository(f.docType)
			if err != nil {
				return err
			}
			n, err := repo.Count(cmd.Context(), f.build())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	f.register(cmd, false)
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
