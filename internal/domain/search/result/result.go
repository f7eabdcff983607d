package result

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
)

// Result is a single search hit with a sparse set of raw field values.
type Result struct {
	id     string
	score  float64
	fields map[string]any
}

// New creates a search result.
func New(id string, score float64, fields map[string]any) Result {
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{id: id, score: score, fields: fields}
}

// ID returns the document identifier.
func (r Result) ID() string { return r.id }

// Score returns the relevance score.
func (r Result) Score() float64 { return r.score }

// Fields returns the raw field values as returned by the engine.
func (r Result) Fields() map[string]any { return r.fields }

// Raw returns the raw value of a field and whether the hit carries it.
func (r Result) Raw(name string) (any, bool) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Present reports whether a field has a displayable value. Absent, null,
// blank strings, numeric zero and false are not present.
func (r Result) Present(name string) bool {
	v, ok := r.Raw(name)
	if !ok {
		return false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x) != ""
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	}
	return true
}

// Page is one page of hits plus the totals needed for pagination.
type Page struct {
	Results []Result
	Total   int
	Page    int
	Size    int
}

// TotalPages returns the number of reachable pages for Total hits at Size per page.
// Pages past the engine's result window are not counted.
func (p Page) TotalPages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	pages := (p.Total + p.Size - 1) / p.Size
	if limit := request.MaxWindow / p.Size; pages > limit {
		return limit
	}
	return pages
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages() }
