package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
	"github.com/kailas-cloud/cvsearch/internal/metrics"
)

// Options tunes the bulk load.
type Options struct {
	Workers       int
	FlushBytes    int
	FlushInterval time.Duration
}

// Report summarizes an index run.
type Report struct {
	Index     string
	Recreated bool
	Rows      int
	Indexed   int
	Failed    int
	Documents int
	Duration  time.Duration
}

// Service rebuilds the transcription index from the dataset.
type Service struct {
	engine Pinger
	index  Index
	logger *zap.Logger
}

// New creates an indexing service.
func New(engine Pinger, index Index, logger *zap.Logger) *Service {
	return &Service{engine: engine, index: index, logger: logger}
}

// Run recreates the index, bulk-loads every row, refreshes, and reports the searchable document count.
// Rejected documents are logged and counted; they do not abort the run.
func (s *Service) Run(ctx context.Context, rows RowSource, opts Options) (Report, error) {
	start := time.Now()
	rep := Report{Index: s.index.Index()}

	if err := s.engine.Ping(ctx); err != nil {
		return rep, fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	}

	recreated, err := s.index.Recreate(ctx)
	if err != nil {
		return rep, fmt.Errorf("recreate index: %w", err)
	}
	rep.Recreated = recreated
	if recreated {
		s.logger.Info("Deleted existing index", zap.String("index", rep.Index))
	}
	s.logger.Info("Created index", zap.String("index", rep.Index))

	w, err := s.index.OpenWriter(transcript.WriteOptions{
		Workers:       opts.Workers,
		FlushBytes:    opts.FlushBytes,
		FlushInterval: opts.FlushInterval,
		OnFailure: func(id string, err error) {
			s.logger.Warn("Document rejected", zap.String("id", id), zap.Error(err))
		},
	})
	if err != nil {
		return rep, fmt.Errorf("open writer: %w", err)
	}

	loadErr := rows(ctx, func(seq int, row map[string]string) error {
		rep.Rows++
		if _, err := w.Add(ctx, seq, transcript.FromRow(row)); err != nil {
			return fmt.Errorf("add row %d: %w", seq, err)
		}
		return nil
	})

	stats, closeErr := w.Close(ctx)
	rep.Indexed, rep.Failed = stats.Indexed, stats.Failed
	metrics.IndexRowsTotal.WithLabelValues("indexed").Add(float64(stats.Indexed))
	metrics.IndexRowsTotal.WithLabelValues("failed").Add(float64(stats.Failed))

	if loadErr != nil {
		return rep, fmt.Errorf("load rows: %w", loadErr)
	}
	if closeErr != nil {
		return rep, fmt.Errorf("close writer: %w", closeErr)
	}

	s.logger.Info("Bulk load finished",
		zap.Int("rows", rep.Rows),
		zap.Int("indexed", rep.Indexed),
		zap.Int("failed", rep.Failed),
	)

	if err := s.index.Refresh(ctx); err != nil {
		return rep, fmt.Errorf("refresh: %w", err)
	}
	n, err := s.index.Count(ctx)
	if err != nil {
		return rep, fmt.Errorf("count: %w", err)
	}
	rep.Documents = n
	rep.Duration = time.Since(start)
	metrics.IndexDocuments.Set(float64(n))

	s.logger.Info("Index ready",
		zap.String("index", rep.Index),
		zap.Int("documents", n),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}
