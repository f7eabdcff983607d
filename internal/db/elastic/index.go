package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/cvsearch/internal/db"
)

// CreateIndex creates an index with the definition's mappings and settings.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	body, err := json.Marshal(def.Mapping())
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: fmt.Errorf("marshal mapping: %w", err)}
	}

	res, err := s.client.Indices.Create(
		def.Name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return transportError(db.OpCreateIndex, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError(db.OpCreateIndex, res)
	}
	return nil
}

// DeleteIndex removes an index. Deleting a missing index returns db.ErrIndexNotFound.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	res, err := s.client.Indices.Delete(
		[]string{name},
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return transportError(db.OpDeleteIndex, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError(db.OpDeleteIndex, res)
	}
	return nil
}

// IndexExists reports whether the index exists.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.client.Indices.Exists(
		[]string{name},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, transportError(db.OpIndexExists, err)
	}
	defer drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(db.OpIndexExists, res)
	}
}

// Refresh makes recently indexed documents visible to search and count.
func (s *Store) Refresh(ctx context.Context, name string) error {
	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithContext(ctx),
		s.client.Indices.Refresh.WithIndex(name),
	)
	if err != nil {
		return transportError(db.OpRefresh, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError(db.OpRefresh, res)
	}
	return nil
}

// Count returns the number of documents in the index.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(name),
	)
	if err != nil {
		return 0, transportError(db.OpCount, err)
	}
	defer drain(res)

	if res.IsError() {
		return 0, responseError(db.OpCount, res)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Count, nil
}
