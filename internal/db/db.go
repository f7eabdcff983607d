package db

import (
	"context"
	"time"
)

// Engine is the search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Engine interface {
	Pinger
	Searcher
	IndexManager
	BulkLoader
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs full-text queries.
type Searcher interface {
	Search(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Refresh(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
}

// BulkLoader opens batched writers into an index.
type BulkLoader interface {
	NewBulkWriter(index string, opts BulkOptions) (BulkWriter, error)
}

// BulkWriter buffers documents and flushes them in the background.
// Close must be called to flush the remaining buffer and collect stats.
type BulkWriter interface {
	Add(ctx context.Context, id string, doc []byte) error
	Close(ctx context.Context) (BulkStats, error)
}

// BulkOptions tunes a BulkWriter.
type BulkOptions struct {
	Workers       int
	FlushBytes    int
	FlushInterval time.Duration
	// OnFailure is called once per rejected document. May be called concurrently.
	OnFailure func(id string, err error)
	// OnSuccess is called once per stored document. May be called concurrently.
	OnSuccess func(id string)
}

// BulkStats summarizes a finished bulk load.
type BulkStats struct {
	Added   int
	Indexed int
	Failed  int
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close()
}
