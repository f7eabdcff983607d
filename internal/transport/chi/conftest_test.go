package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cvsearch/internal/usecase/health"
	"github.com/kailas-cloud/cvsearch/internal/view"
)

type searchCall struct {
	query      string
	page, size int
}

type mockSearcher struct {
	page  result.Page
	err   error
	calls []searchCall
}

func (m *mockSearcher) Search(_ context.Context, query string, page, size int) (result.Page, error) {
	m.calls = append(m.calls, searchCall{query, page, size})
	if m.err != nil {
		return result.Page{}, m.err
	}
	p := m.page
	if p.Page == 0 {
		p.Page = max(page, 1)
	}
	if p.Size == 0 {
		p.Size = 20
	}
	return p, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestServer(t *testing.T, s searcher, h healthChecker) http.Handler {
	t.Helper()
	page, err := view.New(schema.DefaultTemplate())
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}}
	}
	srv := NewServer(s, h, page, "cv-transcriptions", schema.Default(), schema.DefaultTemplate(), zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func samplePage() result.Page {
	return result.Page{
		Results: []result.Result{
			result.New("doc-1", 3.2, map[string]any{
				"generated_text": "BE CAREFUL WITH YOUR PROGNOSTICATIONS",
				"duration":       5.1,
				"age":            "twenties",
				"gender":         "male",
			}),
		},
		Total: 1,
		Page:  1,
		Size:  20,
	}
}
