package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/db"
)

// Search runs a multi-field text query, or match_all when the query is empty.
func (s *Store) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("marshal query: %w", err)}
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(q.Index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, transportError(db.OpSearch, err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, responseError(db.OpSearch, res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	out := &db.SearchResult{
		Total:   sr.Hits.Total.Value,
		Entries: make([]db.SearchEntry, 0, len(sr.Hits.Hits)),
	}
	for _, h := range sr.Hits.Hits {
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		out.Entries = append(out.Entries, db.SearchEntry{
			ID:     h.ID,
			Score:  score,
			Source: h.Source,
		})
	}
	return out, nil
}

// buildSearchBody renders the query DSL.
// lenient lets numeric fields sit in the field list without failing on text input.
func buildSearchBody(q *db.TextQuery) map[string]any {
	var query map[string]any
	if q.Query == "" {
		query = map[string]any{"match_all": map[string]any{}}
	} else {
		mm := map[string]any{
			"query":   q.Query,
			"type":    "best_fields",
			"lenient": true,
		}
		if len(q.Fields) > 0 {
			mm["fields"] = q.Fields
		}
		query = map[string]any{"multi_match": mm}
	}

	body := map[string]any{
		"query":            query,
		"from":             q.From,
		"size":             q.Size,
		"track_total_hits": true,
	}
	if len(q.ReturnFields) > 0 {
		body["_source"] = q.ReturnFields
	}
	return body
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
