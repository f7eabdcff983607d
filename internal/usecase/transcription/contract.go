package transcription

import (
	"context"

	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Ping(ctx context.Context) error
	Transcribe(ctx context.Context, path string) (transcript.Transcription, error)
}

// Sheet is the dataset being annotated, addressed by row and column.
type Sheet interface {
	Len() int
	Get(row int, col string) string
	Set(row int, col, value string) error
	HasColumn(name string) bool
	EnsureColumn(name string)
}

// SaveFunc persists the sheet as a checkpoint.
type SaveFunc func() error
