package cli

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	searchrepo "github.com/kailas-cloud/cvsearch/internal/repository/search"
	searchuc "github.com/kailas-cloud/cvsearch/internal/usecase/search"
	"github.com/kailas-cloud/cvsearch/internal/view"
)

type searchFlags struct {
	page, size int
	jsonOutput bool
}

func newSearchCmd(a *app) *cobra.Command {
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Query the transcription index",
		Long: `Run the same query the search page runs and print one page of hits.
Without a query every document matches.

Examples:
  cvctl search "be careful"
  cvctl search england --page 2 --size 10
  cvctl search --json twenties`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), strings.Join(args, " "), sf)
		},
	}

	f := cmd.Flags()
	f.IntVar(&sf.page, "page", 1, "page number")
	f.IntVar(&sf.size, "size", 0, "hits per page (default search.default_page_size)")
	f.BoolVar(&sf.jsonOutput, "json", false, "print hits as JSON lines")
	return cmd
}

type jsonHit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

func (a *app) runSearch(ctx context.Context, query string, sf searchFlags) error {
	sch, card, err := a.cfg.Search.Schema()
	if err != nil {
		return err
	}
	store, err := a.engine()
	if err != nil {
		return err
	}

	svc := searchuc.New(searchrepo.New(store, a.cfg.Elasticsearch.Index, sch)).
		WithPageSizes(a.cfg.Search.DefaultPageSize, a.cfg.Search.MaxPageSize)
	page, err := svc.Search(ctx, query, sf.page, sf.size)
	if err != nil {
		return err
	}

	if sf.jsonOutput {
		enc := json.NewEncoder(a.out.out)
		for _, res := range page.Results {
			if err := enc.Encode(jsonHit{ID: res.ID(), Score: res.Score(), Fields: res.Fields()}); err != nil {
				return err
			}
		}
		return nil
	}

	if len(page.Results) == 0 {
		a.out.warnf("No results")
		return nil
	}

	blocks := card.Blocks()
	header := make([]string, 0, len(blocks)+2)
	header = append(header, "#", "score", card.Title())
	for _, b := range blocks {
		header = append(header, b.Label)
	}

	rows := make([][]string, 0, len(page.Results))
	for i, res := range page.Results {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.Itoa((page.Page-1)*page.Size+i+1),
			strconv.FormatFloat(res.Score(), 'f', 2, 64),
		)
		title, _ := res.Raw(card.Title())
		row = append(row, view.FormatValue(title))
		for _, b := range blocks {
			cell := ""
			if res.Present(b.Field) {
				v, _ := res.Raw(b.Field)
				cell = view.FormatValue(v) + b.Suffix
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	a.out.table(header, rows)
	a.out.headingf("Page %d of %d, %d hits", page.Page, page.TotalPages(), page.Total)
	return nil
}
