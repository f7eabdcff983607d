package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/db"
	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	domtr "github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// store is the consumer interface for the transcription index (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Refresh(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
	NewBulkWriter(index string, opts db.BulkOptions) (db.BulkWriter, error)
}

// keywordLimit bounds the exact-value subfield of speaker attributes.
const keywordLimit = 256

// Repo manages the transcription index and writes documents into it.
type Repo struct {
	store    store
	index    string
	shards   int
	replicas int
}

// New creates a transcription index repository.
func New(s store, index string, shards, replicas int) *Repo {
	return &Repo{store: s, index: index, shards: shards, replicas: replicas}
}

// Index returns the index name.
func (r *Repo) Index() string { return r.index }

// Definition returns the index mappings: analyzed English text, a float duration,
// speaker attributes with keyword subfields, and the clip path as a keyword.
func (r *Repo) Definition() *db.IndexDefinition {
	attr := func(name string) db.IndexField {
		return db.IndexField{Name: name, Type: db.IndexFieldText, KeywordSubfield: true, IgnoreAbove: keywordLimit}
	}
	return &db.IndexDefinition{
		Name:     r.index,
		Shards:   r.shards,
		Replicas: r.replicas,
		Fields: []db.IndexField{
			{Name: schema.GeneratedText, Type: db.IndexFieldText, Analyzer: "english"},
			{Name: schema.OriginalText, Type: db.IndexFieldText, Analyzer: "english"},
			{Name: schema.Duration, Type: db.IndexFieldFloat},
			attr(schema.Age),
			attr(schema.Gender),
			attr(schema.Accent),
			{Name: schema.Path, Type: db.IndexFieldKeyword},
		},
	}
}

// Recreate drops the index if present and creates it empty.
// Reports whether an existing index was deleted.
func (r *Repo) Recreate(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.index, mapError(err))
	}

	if exists {
		if err := r.store.DeleteIndex(ctx, r.index); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("delete index %s: %w", r.index, mapError(err))
		}
	}

	if err := r.store.CreateIndex(ctx, r.Definition()); err != nil {
		return exists, fmt.Errorf("create index %s: %w", r.index, mapError(err))
	}
	return exists, nil
}

// Refresh makes written documents visible to search.
func (r *Repo) Refresh(ctx context.Context) error {
	if err := r.store.Refresh(ctx, r.index); err != nil {
		return fmt.Errorf("refresh index %s: %w", r.index, mapError(err))
	}
	return nil
}

// Count returns the number of searchable documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx, r.index)
	if err != nil {
		return 0, fmt.Errorf("count index %s: %w", r.index, mapError(err))
	}
	return n, nil
}

// OpenWriter starts a background bulk writer into the index.
func (r *Repo) OpenWriter(opts domtr.WriteOptions) (domtr.Writer, error) {
	bw, err := r.store.NewBulkWriter(r.index, db.BulkOptions{
		Workers:       opts.Workers,
		FlushBytes:    opts.FlushBytes,
		FlushInterval: opts.FlushInterval,
		OnFailure:     opts.OnFailure,
	})
	if err != nil {
		return nil, fmt.Errorf("open bulk writer %s: %w", r.index, mapError(err))
	}
	return &Writer{bw: bw}, nil
}

// Compile-time check: Writer implements transcript.Writer.
var _ domtr.Writer = (*Writer)(nil)

// Writer queues transcripts as index documents.
type Writer struct {
	bw db.BulkWriter
}

// Add queues one transcript; seq is its dataset row number, used for the id when the path is empty.
// Returns the document id.
func (w *Writer) Add(ctx context.Context, seq int, t domtr.Transcript) (string, error) {
	doc, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal row %d: %w", seq, err)
	}
	id := t.ID(seq)
	if err := w.bw.Add(ctx, id, doc); err != nil {
		return "", fmt.Errorf("queue row %d: %w", seq, mapError(err))
	}
	return id, nil
}

// Close flushes queued documents and returns the final counters.
func (w *Writer) Close(ctx context.Context) (domtr.Stats, error) {
	bs, err := w.bw.Close(ctx)
	stats := domtr.Stats{Added: bs.Added, Indexed: bs.Indexed, Failed: bs.Failed}
	if err != nil {
		return stats, fmt.Errorf("flush: %w", mapError(err))
	}
	return stats, nil
}

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
