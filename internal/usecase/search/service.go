package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
	"github.com/kailas-cloud/cvsearch/internal/metrics"
)

// Service validates page requests and runs them against the index.
type Service struct {
	repo        Repository
	defaultSize int
	maxSize     int
}

// New creates a search service with the package default page sizes.
func New(repo Repository) *Service {
	return &Service{repo: repo, defaultSize: request.DefaultSize, maxSize: request.MaxSize}
}

// WithPageSizes overrides the default and maximum page size. Non-positive values keep the current setting.
func (s *Service) WithPageSizes(defaultSize, maxSize int) *Service {
	if defaultSize > 0 {
		s.defaultSize = defaultSize
	}
	if maxSize > 0 {
		s.maxSize = maxSize
	}
	return s
}

// Search returns one page of hits. An empty query matches every document.
func (s *Service) Search(ctx context.Context, query string, page, size int) (result.Page, error) {
	req, err := request.NewWithLimits(query, page, size, s.defaultSize, s.maxSize)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(kindOf(query), "invalid").Inc()
		return result.Page{}, err
	}

	kind := kindOf(req.Query())
	start := time.Now()
	p, err := s.repo.Search(ctx, req)
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(kind, outcome(err)).Inc()
		return result.Page{}, fmt.Errorf("search: %w", err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(kind, "ok").Inc()
	metrics.SearchHits.Observe(float64(p.Total))
	return p, nil
}

func kindOf(query string) string {
	if query == "" {
		return "match_all"
	}
	return "query"
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrEngineUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
