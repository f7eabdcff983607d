package searchcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/db"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
)

type mockSearcher struct {
	page  result.Page
	err   error
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ request.Request) (result.Page, error) {
	m.calls++
	return m.page, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

// memKVStore is an in-memory store for round-trip tests.
type memKVStore struct {
	data map[string][]byte
}

func (m *memKVStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKVStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func newTestCachedSearcher(t *testing.T, inner *mockSearcher) (*CachedSearcher, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(inner, ms, "cvsearch:test:", time.Minute, nil, zap.NewNop()), ms
}

func mustRequest(t *testing.T, query string, page, size int) request.Request {
	t.Helper()
	req, err := request.New(query, page, size)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

func samplePage() result.Page {
	return result.Page{
		Results: []result.Result{
			result.New("a", 1.5, map[string]any{"generated_text": "hello", "duration": 4.5}),
		},
		Total: 1,
		Page:  1,
		Size:  20,
	}
}
