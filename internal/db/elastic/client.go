package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/cvsearch/internal/db"
)

// Compile-time check: Store implements db.Engine.
var _ db.Engine = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	MaxRetries int
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Store implements db.Engine via go-elasticsearch.
type Store struct {
	client *elasticsearch.Client
}

// NewStore creates an Elasticsearch store. No request is sent until first use.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer drain(res)

	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: status %d", db.ErrUnavailable, res.StatusCode)}
	}
	return nil
}

// WaitForReady polls Ping until the engine responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search engine: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// engineError is the error envelope returned by the REST API.
type engineError struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// responseError converts a non-2xx response into a db error.
// index_not_found_exception maps to db.ErrIndexNotFound, 5xx to db.ErrUnavailable.
func responseError(op string, res *esapi.Response) error {
	var env engineError
	body, _ := io.ReadAll(res.Body)
	_ = json.Unmarshal(body, &env)

	reason := env.Error.Reason
	if reason == "" {
		reason = strings.TrimSpace(string(body))
	}

	switch {
	case env.Error.Type == "index_not_found_exception" || (res.StatusCode == http.StatusNotFound && env.Error.Type == ""):
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrIndexNotFound, reason)}
	case env.Error.Type == "resource_already_exists_exception":
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrIndexExists, reason)}
	case res.StatusCode >= http.StatusInternalServerError:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: status %d: %s", db.ErrUnavailable, res.StatusCode, reason)}
	default:
		return &db.Error{Op: op, Err: fmt.Errorf("status %d: %s: %s", res.StatusCode, env.Error.Type, reason)}
	}
}

// transportError wraps a failure to reach the engine at all.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &db.Error{Op: op, Err: err}
	}
	return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
