package transcript

import (
	"context"
	"time"
)

// Writer queues transcripts for indexing. Close flushes and reports the outcome.
type Writer interface {
	Add(ctx context.Context, seq int, t Transcript) (string, error)
	Close(ctx context.Context) (Stats, error)
}

// WriteOptions tunes a Writer.
type WriteOptions struct {
	Workers       int
	FlushBytes    int
	FlushInterval time.Duration
	// OnFailure is called once per rejected document. May be called concurrently.
	OnFailure func(id string, err error)
}

// Stats summarizes a finished write.
type Stats struct {
	Added   int
	Indexed int
	Failed  int
}
