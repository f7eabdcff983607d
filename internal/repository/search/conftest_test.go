package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/cvsearch/internal/db"
	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	lastQ    *db.TextQuery
}

func (m *mockStore) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.lastQ = q
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "cv-transcriptions", schema.Default()), ms
}

func mustRequest(t *testing.T, query string, page, size int) request.Request {
	t.Helper()
	req, err := request.New(query, page, size)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}
