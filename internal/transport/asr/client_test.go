package asr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/cvsearch/internal/domain"
)

func writeClip(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"json quoted", http.StatusOK, `"pong"`, false},
		{"bare", http.StatusOK, "pong\n", false},
		{"wrong body", http.StatusOK, `"ping"`, true},
		{"server error", http.StatusInternalServerError, "model not loaded", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/ping" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(Config{Host: server.URL + "/"}).Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ping err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/asr" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "sample-000000.mp3" || string(data) != "ID3audio" {
			t.Errorf("upload = %s %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription":"BE CAREFUL WITH YOUR PROGNOSTICATIONS","duration":"5.1"}`))
	}))
	defer server.Close()

	c := NewClient(Config{Host: server.URL})
	res, err := c.Transcribe(context.Background(), writeClip(t, "sample-000000.mp3", "ID3audio"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if res.Text != "BE CAREFUL WITH YOUR PROGNOSTICATIONS" || res.Duration != "5.1" {
		t.Errorf("result = %+v", res)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"decode failed"}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{Host: server.URL}).Transcribe(context.Background(), writeClip(t, "a.mp3", "x"))
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribe_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := NewClient(Config{Host: server.URL}).Transcribe(context.Background(), writeClip(t, "a.mp3", "x"))
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	c := NewClient(Config{Host: "http://127.0.0.1:0"})
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"))
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`"pong"`))
	}))
	defer server.Close()

	if err := NewClient(Config{Host: server.URL}).WaitReady(context.Background(), 30*time.Second); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if calls.Load() < 3 {
		t.Errorf("calls = %d, want >= 3", calls.Load())
	}
}

func TestWaitReady_GivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewClient(Config{Host: server.URL}).WaitReady(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
}
