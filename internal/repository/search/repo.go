package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/db"
	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store  store
	index  string
	schema schema.Schema
}

// New creates a search repository over one index with a fixed query shape.
func New(s store, index string, sch schema.Schema) *Repo {
	return &Repo{store: s, index: index, schema: sch}
}

// Search runs the request against the index and returns one page of hits.
func (r *Repo) Search(ctx context.Context, req request.Request) (result.Page, error) {
	sr, err := r.store.Search(ctx, r.buildQuery(req))
	if err != nil {
		return result.Page{}, fmt.Errorf("search %s: %w", r.index, mapError(err))
	}

	return result.Page{
		Results: parseResults(sr, r.schema),
		Total:   sr.Total,
		Page:    req.Page(),
		Size:    req.Size(),
	}, nil
}

func (r *Repo) buildQuery(req request.Request) *db.TextQuery {
	searchFields := r.schema.SearchFields()
	fields := make([]string, len(searchFields))
	for i, f := range searchFields {
		fields[i] = f.SearchTerm()
	}

	return &db.TextQuery{
		Index:        r.index,
		Query:        req.Query(),
		Fields:       fields,
		ReturnFields: r.schema.ResultFieldNames(),
		From:         req.From(),
		Size:         req.Size(),
	}
}

// parseResults converts engine entries into results, keeping only result fields.
func parseResults(sr *db.SearchResult, sch schema.Schema) []result.Result {
	if sr == nil || len(sr.Entries) == 0 {
		return []result.Result{}
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		fields := make(map[string]any, len(entry.Source))
		for k, v := range entry.Source {
			if sch.IsResultField(k) {
				fields[k] = v
			}
		}
		results = append(results, result.New(entry.ID, entry.Score, fields))
	}
	return results
}

// mapError translates storage errors into domain errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, db.ErrIndexNotFound):
		return fmt.Errorf("%w: %w", domain.ErrIndexNotFound, err)
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	default:
		return err
	}
}
