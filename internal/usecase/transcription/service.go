package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
	"github.com/kailas-cloud/cvsearch/internal/metrics"
)

// Options tunes a transcription pass.
type Options struct {
	// DataRoot is joined with each row's filename.
	DataRoot string
	// CheckpointEvery saves the sheet after this many new transcriptions.
	CheckpointEvery int
	// Interval is the minimum spacing between ASR requests; 0 disables limiting.
	Interval time.Duration
	Workers  int
}

// Report summarizes a transcription pass.
type Report struct {
	Total       int
	Succeeded   int // newly transcribed plus previously transcribed
	Transcribed int
	Skipped     int
	Missing     int
	Failed      int
	Checkpoints int
}

// Service runs every dataset row through an ASR backend, resuming from rows already transcribed.
type Service struct {
	asr    Transcriber
	logger *zap.Logger
}

// New creates a transcription service.
func New(asr Transcriber, logger *zap.Logger) *Service {
	return &Service{asr: asr, logger: logger}
}

type job struct {
	row  int
	path string
}

// run holds the mutable state of one pass.
type run struct {
	mu      sync.Mutex
	sheet   Sheet
	save    SaveFunc
	every   int
	pending int
	hasDur  bool
	rep     Report
}

// Run transcribes every row with an empty generated_text. Missing audio files are skipped,
// per-file failures are logged and leave the row empty. The sheet is checkpointed
// periodically and always once more before returning, including on cancellation.
func (s *Service) Run(ctx context.Context, sheet Sheet, save SaveFunc, opts Options) (Report, error) {
	if err := s.asr.Ping(ctx); err != nil {
		return Report{}, fmt.Errorf("%w: %s backend not ready: %w", domain.ErrTranscriptionFailed, s.asr.Name(), err)
	}

	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 10
	}

	sheet.EnsureColumn(transcript.ColumnGeneratedText)
	r := &run{
		sheet:  sheet,
		save:   save,
		every:  opts.CheckpointEvery,
		hasDur: sheet.HasColumn(transcript.ColumnDuration),
		rep:    Report{Total: sheet.Len()},
	}

	var limiter *rate.Limiter
	if opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, opts.Workers)

	g.Go(func() error {
		defer close(jobs)
		return s.produce(gctx, r, opts.DataRoot, jobs)
	})
	for range opts.Workers {
		g.Go(func() error {
			for j := range jobs {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return err
					}
				}
				s.transcribe(gctx, r, j.row, j.path)
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	if err := r.checkpoint(); err != nil {
		return r.report(), fmt.Errorf("final checkpoint: %w", err)
	}

	rep := r.report()
	s.logger.Info("Transcription finished",
		zap.String("backend", s.asr.Name()),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("total", rep.Total),
		zap.Int("transcribed", rep.Transcribed),
		zap.Int("missing", rep.Missing),
		zap.Int("failed", rep.Failed),
	)

	if runErr != nil {
		return rep, fmt.Errorf("transcription interrupted: %w", runErr)
	}
	return rep, nil
}

// produce queues rows that need transcription and accounts for the rest.
func (s *Service) produce(ctx context.Context, r *run, root string, jobs chan<- job) error {
	backend := s.asr.Name()
	for row := range r.sheet.Len() {
		name := strings.TrimSpace(r.get(row, transcript.ColumnFilename))
		path := filepath.Join(root, name)

		if name == "" || !fileExists(path) {
			s.logger.Warn("Audio file not found", zap.Int("row", row), zap.String("path", path))
			metrics.TranscriptionsTotal.WithLabelValues(backend, "missing").Inc()
			r.mu.Lock()
			r.rep.Missing++
			r.mu.Unlock()
			continue
		}

		if strings.TrimSpace(r.get(row, transcript.ColumnGeneratedText)) != "" {
			s.logger.Debug("Already transcribed", zap.Int("row", row), zap.String("file", name))
			metrics.TranscriptionsTotal.WithLabelValues(backend, "skipped").Inc()
			r.mu.Lock()
			r.rep.Skipped++
			r.rep.Succeeded++
			r.mu.Unlock()
			continue
		}

		select {
		case jobs <- job{row: row, path: path}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) transcribe(ctx context.Context, r *run, row int, path string) {
	backend := s.asr.Name()
	start := time.Now()
	res, err := s.asr.Transcribe(ctx, path)
	metrics.TranscriptionDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = fmt.Errorf("%w: empty transcription", domain.ErrTranscriptionFailed)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("Transcription failed", zap.Int("row", row), zap.String("path", path), zap.Error(err))
		metrics.TranscriptionsTotal.WithLabelValues(backend, "error").Inc()
		r.mu.Lock()
		r.rep.Failed++
		r.mu.Unlock()
		return
	}

	metrics.TranscriptionsTotal.WithLabelValues(backend, "ok").Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.sheet.Set(row, transcript.ColumnGeneratedText, res.Text)
	if r.hasDur && res.Duration != "" && strings.TrimSpace(r.sheet.Get(row, transcript.ColumnDuration)) == "" {
		_ = r.sheet.Set(row, transcript.ColumnDuration, res.Duration)
	}
	r.rep.Transcribed++
	r.rep.Succeeded++
	r.pending++

	if r.pending >= r.every {
		if err := r.saveLocked(); err != nil {
			s.logger.Error("Checkpoint failed", zap.Error(err))
			return
		}
		s.logger.Info("Progress saved",
			zap.Int("succeeded", r.rep.Succeeded),
			zap.Int("total", r.rep.Total),
		)
	}
}

func (r *run) get(row int, col string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sheet.Get(row, col)
}

func (r *run) report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rep
}

func (r *run) checkpoint() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

func (r *run) saveLocked() error {
	if err := r.save(); err != nil {
		return err
	}
	r.pending = 0
	r.rep.Checkpoints++
	metrics.CheckpointsTotal.Inc()
	return nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
