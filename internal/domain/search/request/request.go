package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/cvsearch/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in characters.
	MaxQueryLength = 1024
	DefaultSize    = 20
	MaxSize        = 100
	// MaxWindow mirrors the engine's default index.max_result_window.
	MaxWindow = 10000
)

// Request is a validated page request for the search box.
type Request struct {
	query string
	page  int
	size  int
}

// New validates and normalizes search parameters with the package default and maximum page size.
// An empty query is allowed and matches every document (initial page load).
func New(query string, page, size int) (Request, error) {
	return NewWithLimits(query, page, size, DefaultSize, MaxSize)
}

// NewWithLimits is New with a configured default and maximum page size.
// Page defaults to 1; size defaults to defaultSize and is clamped to maxSize.
func NewWithLimits(query string, page, size, defaultSize, maxSize int) (Request, error) {
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}
	if maxSize <= 0 || maxSize > MaxSize {
		maxSize = MaxSize
	}

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if page < 0 {
		return Request{}, fmt.Errorf("%w: page must be positive", domain.ErrInvalidQuery)
	}
	if page == 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if page > MaxWindow || page*size > MaxWindow {
		return Request{}, fmt.Errorf(
			"%w: page %d exceeds the result window of %d hits", domain.ErrInvalidQuery, page, MaxWindow,
		)
	}
	return Request{query: query, page: page, size: size}, nil
}

// Query returns the trimmed query text; empty means match all.
func (r Request) Query() string { return r.query }

// MatchAll reports whether the request has no query text.
func (r Request) MatchAll() bool { return r.query == "" }

// Page returns the 1-based page number.
func (r Request) Page() int { return r.page }

// Size returns the number of hits per page.
func (r Request) Size() int { return r.size }

// From returns the zero-based offset of the first hit on the page.
func (r Request) From() int { return (r.page - 1) * r.size }
