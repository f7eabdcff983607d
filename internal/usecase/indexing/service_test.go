package indexing

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// --- Mocks ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockWriter struct {
	added    []transcript.Transcript
	rejectAt int
	opts     transcript.WriteOptions
}

func (w *mockWriter) Add(_ context.Context, seq int, t transcript.Transcript) (string, error) {
	w.added = append(w.added, t)
	if w.rejectAt > 0 && seq == w.rejectAt && w.opts.OnFailure != nil {
		w.opts.OnFailure(t.ID(seq), errors.New("mapper_parsing_exception"))
	}
	return t.ID(seq), nil
}

func (w *mockWriter) Close(_ context.Context) (transcript.Stats, error) {
	failed := 0
	if w.rejectAt > 0 {
		failed = 1
	}
	return transcript.Stats{Added: len(w.added), Indexed: len(w.added) - failed, Failed: failed}, nil
}

type mockIndex struct {
	existed    bool
	recreateFn func() error
	writer     *mockWriter
	refreshed  bool
	count      int
}

func (m *mockIndex) Index() string { return "cv-transcriptions" }

func (m *mockIndex) Recreate(_ context.Context) (bool, error) {
	if m.recreateFn != nil {
		if err := m.recreateFn(); err != nil {
			return false, err
		}
	}
	return m.existed, nil
}

func (m *mockIndex) OpenWriter(opts transcript.WriteOptions) (transcript.Writer, error) {
	if m.writer == nil {
		m.writer = &mockWriter{}
	}
	m.writer.opts = opts
	return m.writer, nil
}

func (m *mockIndex) Refresh(_ context.Context) error {
	m.refreshed = true
	return nil
}

func (m *mockIndex) Count(_ context.Context) (int, error) { return m.count, nil }

func rowsOf(rows ...map[string]string) RowSource {
	return func(ctx context.Context, fn func(int, map[string]string) error) error {
		for i, r := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i, r); err != nil {
				return err
			}
		}
		return nil
	}
}

// --- Tests ---

func TestRun_Success(t *testing.T) {
	idx := &mockIndex{existed: true, count: 2}
	svc := New(&mockPinger{}, idx, zap.NewNop())

	rep, err := svc.Run(context.Background(), rowsOf(
		map[string]string{"filename": "a.mp3", "sentence": "be careful", "generated_text": "BE CAREFUL", "duration": "2.5"},
		map[string]string{"filename": "b.mp3", "generated_text": "HELLO", "duration": "n/a", "accent": "us"},
	), Options{Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rep.Recreated || rep.Rows != 2 || rep.Indexed != 2 || rep.Failed != 0 || rep.Documents != 2 {
		t.Errorf("report = %+v", rep)
	}
	if !idx.refreshed {
		t.Error("index should be refreshed before counting")
	}
	if idx.writer.opts.Workers != 2 {
		t.Errorf("workers = %d, want 2", idx.writer.opts.Workers)
	}

	first := idx.writer.added[0]
	if first.OriginalText != "be careful" || first.Duration != 2.5 || first.Path != "a.mp3" {
		t.Errorf("first transcript = %+v", first)
	}
	if idx.writer.added[1].Duration != 0 {
		t.Errorf("unparsable duration should be 0, got %v", idx.writer.added[1].Duration)
	}
}

func TestRun_RejectedDocumentsCounted(t *testing.T) {
	idx := &mockIndex{writer: &mockWriter{rejectAt: 1}, count: 1}
	svc := New(&mockPinger{}, idx, zap.NewNop())

	rep, err := svc.Run(context.Background(), rowsOf(
		map[string]string{"filename": "a.mp3"},
		map[string]string{"filename": "b.mp3"},
	), Options{})
	if err != nil {
		t.Fatalf("rejections must not fail the run: %v", err)
	}
	if rep.Indexed != 1 || rep.Failed != 1 {
		t.Errorf("indexed/failed = %d/%d, want 1/1", rep.Indexed, rep.Failed)
	}
}

func TestRun_EngineDown(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockPinger{err: errors.New("connection refused")}, idx, zap.NewNop())

	_, err := svc.Run(context.Background(), rowsOf(), Options{})
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if idx.writer != nil {
		t.Error("no writer should be opened when the engine is down")
	}
}

func TestRun_RecreateFails(t *testing.T) {
	idx := &mockIndex{recreateFn: func() error { return domain.ErrEngineUnavailable }}
	svc := New(&mockPinger{}, idx, zap.NewNop())

	_, err := svc.Run(context.Background(), rowsOf(), Options{})
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestRun_SourceError(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockPinger{}, idx, zap.NewNop())
	boom := errors.New("bad csv")

	_, err := svc.Run(context.Background(), func(context.Context, func(int, map[string]string) error) error {
		return boom
	}, Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if idx.refreshed {
		t.Error("failed load should not refresh")
	}
}
