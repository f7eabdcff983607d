package indexing

import (
	"context"

	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// Pinger checks search engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Index is the transcription index lifecycle and write contract.
type Index interface {
	Index() string
	Recreate(ctx context.Context) (bool, error)
	OpenWriter(opts transcript.WriteOptions) (transcript.Writer, error)
	Refresh(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// RowSource streams dataset rows with their zero-based row number.
type RowSource func(ctx context.Context, fn func(seq int, row map[string]string) error) error
