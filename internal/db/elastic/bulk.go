package elastic

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/kailas-cloud/cvsearch/internal/db"
)

// bulkWriter adapts esutil.BulkIndexer to db.BulkWriter.
type bulkWriter struct {
	bi   esutil.BulkIndexer
	opts db.BulkOptions
}

// NewBulkWriter opens a background bulk indexer for one index.
func (s *Store) NewBulkWriter(index string, opts db.BulkOptions) (db.BulkWriter, error) {
	cfg := esutil.BulkIndexerConfig{
		Client:     s.client,
		Index:      index,
		NumWorkers: opts.Workers,
		FlushBytes: opts.FlushBytes,
	}
	if opts.FlushInterval > 0 {
		cfg.FlushInterval = opts.FlushInterval
	}
	if opts.OnFailure != nil {
		cfg.OnError = func(_ context.Context, err error) {
			opts.OnFailure("", &db.Error{Op: db.OpBulk, Err: err})
		}
	}

	bi, err := esutil.NewBulkIndexer(cfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("create bulk indexer: %w", err)}
	}
	return &bulkWriter{bi: bi, opts: opts}, nil
}

// Add queues one document for indexing under the given id.
func (w *bulkWriter) Add(ctx context.Context, id string, doc []byte) error {
	item := esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: id,
		Body:       bytes.NewReader(doc),
		OnSuccess: func(_ context.Context, item esutil.BulkIndexerItem, _ esutil.BulkIndexerResponseItem) {
			if w.opts.OnSuccess != nil {
				w.opts.OnSuccess(item.DocumentID)
			}
		},
		OnFailure: func(
			_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error,
		) {
			if w.opts.OnFailure == nil {
				return
			}
			if err == nil {
				err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
			}
			w.opts.OnFailure(item.DocumentID, &db.Error{Op: db.OpBulk, Err: err})
		},
	}
	if err := w.bi.Add(ctx, item); err != nil {
		return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("queue document %s: %w", id, err)}
	}
	return nil
}

// Close flushes remaining documents and returns the final counters.
func (w *bulkWriter) Close(ctx context.Context) (db.BulkStats, error) {
	err := w.bi.Close(ctx)
	st := w.bi.Stats()
	stats := db.BulkStats{
		Added:   int(st.NumAdded),
		Indexed: int(st.NumFlushed),
		Failed:  int(st.NumFailed),
	}
	if err != nil {
		return stats, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("close bulk indexer: %w", err)}
	}
	return stats, nil
}
