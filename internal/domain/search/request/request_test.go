package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cvsearch/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("  hello  ", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "hello" {
		t.Errorf("Query() = %q, want trimmed", r.Query())
	}
	if r.Page() != 1 {
		t.Errorf("Page() = %d, want 1", r.Page())
	}
	if r.Size() != DefaultSize {
		t.Errorf("Size() = %d, want %d", r.Size(), DefaultSize)
	}
	if r.From() != 0 {
		t.Errorf("From() = %d, want 0", r.From())
	}
	if r.MatchAll() {
		t.Error("MatchAll() = true for non-empty query")
	}
}

func TestNew_EmptyQueryMatchesAll(t *testing.T) {
	r, err := New("", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.MatchAll() {
		t.Error("expected MatchAll for empty query")
	}

	r, err = New("   ", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.MatchAll() {
		t.Error("expected MatchAll for blank query")
	}
}

func TestNew_FromOffset(t *testing.T) {
	r, err := New("q", 3, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.From() != 50 {
		t.Errorf("From() = %d, want 50", r.From())
	}
}

func TestNew_SizeClamped(t *testing.T) {
	r, err := New("q", 1, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != MaxSize {
		t.Errorf("Size() = %d, want %d", r.Size(), MaxSize)
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New(strings.Repeat("x", MaxQueryLength+1), 1, 10)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestNew_QueryLengthCountsRunes(t *testing.T) {
	if _, err := New(strings.Repeat("é", MaxQueryLength), 1, 10); err != nil {
		t.Fatalf("unexpected error for %d runes: %v", MaxQueryLength, err)
	}
}

func TestNew_NegativePage(t *testing.T) {
	_, err := New("q", -1, 10)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestNew_BeyondResultWindow(t *testing.T) {
	tests := []struct {
		name string
		page int
		size int
		ok   bool
	}{
		{"last full page", MaxWindow / 100, 100, true},
		{"one past", MaxWindow/100 + 1, 100, false},
		{"huge page", 1 << 40, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("q", tt.page, tt.size)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestNewWithLimits(t *testing.T) {
	r, err := NewWithLimits("q", 1, 0, 5, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != 5 {
		t.Errorf("Size() = %d, want configured default 5", r.Size())
	}

	r, err = NewWithLimits("q", 1, 80, 5, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != 50 {
		t.Errorf("Size() = %d, want configured max 50", r.Size())
	}

	r, err = NewWithLimits("q", 1, 500, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != MaxSize {
		t.Errorf("Size() = %d, want hard max %d", r.Size(), MaxSize)
	}
}
