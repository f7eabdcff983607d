package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/db"
	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/request"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// searcher is the wrapped search repository.
type searcher interface {
	Search(ctx context.Context, req request.Request) (result.Page, error)
}

// CachedSearcher caches result pages in a key-value store.
// Errors are never cached and cache failures fall through to the inner searcher.
type CachedSearcher struct {
	inner      searcher
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// prefix namespaces keys (e.g. "cvsearch:<index>:").
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner searcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	return &CachedSearcher{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns a cached page or calls the inner searcher.
func (c *CachedSearcher) Search(ctx context.Context, req request.Request) (result.Page, error) {
	key := c.cacheKey(req)

	if page, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return page, nil
	}

	c.incCache("miss")

	page, err := c.inner.Search(ctx, req)
	if err != nil {
		return result.Page{}, err
	}

	c.putToCache(ctx, key, page)
	return page, nil
}

// KeyPrefix namespaces keys by base prefix, index and a digest of the query shape,
// so a changed field configuration never reads pages cached under the old one.
func KeyPrefix(base, index string, sch schema.Schema) string {
	h := sha256.New()
	for _, f := range sch.SearchFields() {
		h.Write([]byte(f.SearchTerm()))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, name := range sch.ResultFieldNames() {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	return base + index + ":" + hex.EncodeToString(h.Sum(nil))[:12] + ":"
}

func (c *CachedSearcher) incCache(res string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(res).Inc()
	}
}

func (c *CachedSearcher) cacheKey(req request.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Query()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.Page())))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.Size())))
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) (result.Page, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached page", zap.String("key", key), zap.Error(err))
		}
		return result.Page{}, false
	}
	if len(data) == 0 {
		return result.Page{}, false
	}

	page, err := decodePage(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached page", zap.String("key", key), zap.Error(err))
		return result.Page{}, false
	}
	return page, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, page result.Page) {
	data, err := encodePage(page)
	if err != nil {
		c.logger.Warn("Failed to encode page", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}

type cachedHit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

type cachedPage struct {
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Hits  []cachedHit `json:"hits"`
}

func encodePage(p result.Page) ([]byte, error) {
	cp := cachedPage{Total: p.Total, Page: p.Page, Size: p.Size, Hits: make([]cachedHit, len(p.Results))}
	for i, r := range p.Results {
		cp.Hits[i] = cachedHit{ID: r.ID(), Score: r.Score(), Fields: r.Fields()}
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}
	return data, nil
}

func decodePage(data []byte) (result.Page, error) {
	var cp cachedPage
	if err := json.Unmarshal(data, &cp); err != nil {
		return result.Page{}, fmt.Errorf("unmarshal page: %w", err)
	}
	results := make([]result.Result, len(cp.Hits))
	for i, h := range cp.Hits {
		results[i] = result.New(h.ID, h.Score, h.Fields)
	}
	return result.Page{Results: results, Total: cp.Total, Page: cp.Page, Size: cp.Size}, nil
}
