package transcript

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/cvsearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	existsFn func(ctx context.Context, name string) (bool, error)
	deleteFn func(ctx context.Context, name string) error
	createFn func(ctx context.Context, def *db.IndexDefinition) error
	countFn  func(ctx context.Context, name string) (int, error)

	calls   []string
	created *db.IndexDefinition
	writer  *mockBulkWriter
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	m.calls = append(m.calls, "exists")
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) DeleteIndex(ctx context.Context, name string) error {
	m.calls = append(m.calls, "delete")
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.calls = append(m.calls, "create")
	m.created = def
	if m.createFn != nil {
		return m.createFn(ctx, def)
	}
	return nil
}

func (m *mockStore) Refresh(_ context.Context, _ string) error {
	m.calls = append(m.calls, "refresh")
	return nil
}

func (m *mockStore) Count(ctx context.Context, name string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) NewBulkWriter(_ string, _ db.BulkOptions) (db.BulkWriter, error) {
	m.writer = &mockBulkWriter{docs: map[string][]byte{}}
	return m.writer, nil
}

// mockBulkWriter records queued documents.
type mockBulkWriter struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (w *mockBulkWriter) Add(_ context.Context, id string, doc []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[id] = doc
	return nil
}

func (w *mockBulkWriter) Close(_ context.Context) (db.BulkStats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return db.BulkStats{Added: len(w.docs), Indexed: len(w.docs)}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "cv-transcriptions", 2, 1), ms
}
