package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

type mockTranscriber struct {
	mu      sync.Mutex
	pingErr error
	fn      func(ctx context.Context, path string) (transcript.Transcription, error)
	paths   []string
}

func (m *mockTranscriber) Name() string { return "mock" }

func (m *mockTranscriber) Ping(_ context.Context) error { return m.pingErr }

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (transcript.Transcription, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, path)
	}
	return transcript.Transcription{Text: "TEXT OF " + filepath.Base(path), Duration: "4.5"}, nil
}

func (m *mockTranscriber) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// memSheet is an in-memory Sheet.
type memSheet struct {
	header []string
	rows   []map[string]string
}

func newSheet(header []string, rows ...map[string]string) *memSheet {
	return &memSheet{header: header, rows: rows}
}

func (s *memSheet) Len() int { return len(s.rows) }

func (s *memSheet) Get(row int, col string) string { return s.rows[row][col] }

func (s *memSheet) Set(row int, col, value string) error {
	if !s.HasColumn(col) {
		return fmt.Errorf("unknown column %q", col)
	}
	s.rows[row][col] = value
	return nil
}

func (s *memSheet) HasColumn(name string) bool {
	for _, h := range s.header {
		if h == name {
			return true
		}
	}
	return false
}

func (s *memSheet) EnsureColumn(name string) {
	if !s.HasColumn(name) {
		s.header = append(s.header, name)
	}
}

// saveCounter records checkpoint calls with a snapshot of transcribed rows.
type saveCounter struct {
	mu    sync.Mutex
	n     int
	sheet *memSheet
	snaps []int
}

func (c *saveCounter) save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	done := 0
	for _, r := range c.sheet.rows {
		if r[transcript.ColumnGeneratedText] != "" {
			done++
		}
	}
	c.snaps = append(c.snaps, done)
	return nil
}

// writeAudio creates empty audio files under root and returns their relative names.
func writeAudio(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("RIFF"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func rowFor(name string) map[string]string {
	return map[string]string{transcript.ColumnFilename: name}
}
