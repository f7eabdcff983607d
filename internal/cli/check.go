package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
)

func newCheckCmd(a *app) *cobra.Command {
	var ping bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the search schema against the result template",
		Long: `Check that every field the result card displays is returned by the query,
and optionally that Elasticsearch is reachable and the index exists.
Exits non-zero when a check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd.Context(), ping)
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "also check Elasticsearch and the index")
	return cmd
}

func (a *app) runCheck(ctx context.Context, ping bool) error {
	sch, card, err := a.cfg.Search.Schema()
	if err != nil {
		return err
	}
	a.out.successf("Schema: search %s; result %s",
		strings.Join(searchTerms(sch.SearchFields()), ", "),
		strings.Join(sch.ResultFieldNames(), ", "))
	a.out.successf("Template: title %s, %d blocks", card.Title(), len(card.Blocks()))

	if !ping {
		return nil
	}

	store, err := a.engine()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Elasticsearch.ReadinessTimeout)*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("elasticsearch %s: %w", a.cfg.Elasticsearch.URL, err)
	}
	a.out.successf("Elasticsearch reachable at %s", a.cfg.Elasticsearch.URL)

	exists, err := store.IndexExists(ctx, a.cfg.Elasticsearch.Index)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("index %q does not exist; run cvctl index", a.cfg.Elasticsearch.Index)
	}
	n, err := store.Count(ctx, a.cfg.Elasticsearch.Index)
	if err != nil {
		return err
	}
	a.out.successf("Index %s has %d documents", a.cfg.Elasticsearch.Index, n)
	return nil
}

func searchTerms(fields []schema.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.SearchTerm()
	}
	return out
}
