// Package asr is the client for the speech-recognition service that serves /ping and /asr.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// errBodyLimit caps how much of an error response is kept for messages.
const errBodyLimit = 1024

// Client calls the ASR service over HTTP.
type Client struct {
	host string
	http *http.Client
}

// Config holds ASR service connection settings.
type Config struct {
	Host    string
	Timeout time.Duration
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// NewClient creates an ASR client. Host is the service base URL, e.g. http://localhost:8001.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		host: strings.TrimRight(cfg.Host, "/"),
		http: &http.Client{Timeout: timeout, Transport: cfg.Transport},
	}
}

// Name identifies the backend.
func (c *Client) Name() string { return "asr" }

// Ping checks that the service answers GET /ping with "pong" (JSON-quoted or bare).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/ping", http.NoBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping %s: status %d: %s", c.host, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if got := strings.Trim(strings.TrimSpace(string(body)), `"`); got != "pong" {
		return fmt.Errorf("ping %s: unexpected body %q", c.host, got)
	}
	return nil
}

// WaitReady pings with exponential backoff until the service is up or maxWait elapses.
// The model server can take a while to load weights after start.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.Ping(ctx)
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		return fmt.Errorf("asr service not ready: %w", err)
	}
	return nil
}

// response is the /asr payload; duration arrives as a string of seconds.
type response struct {
	Transcription string `json:"transcription"`
	Duration      string `json:"duration"`
}

// Transcribe uploads one file as multipart field "file" to POST /asr.
func (c *Client) Transcribe(ctx context.Context, path string) (transcript.Transcription, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return transcript.Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/asr", body)
	if err != nil {
		return transcript.Transcription{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return transcript.Transcription{}, ctxErr
		}
		return transcript.Transcription{}, fmt.Errorf("%w: post %s: %w", domain.ErrTranscriptionFailed, filepath.Base(path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return transcript.Transcription{}, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrTranscriptionFailed, filepath.Base(path), resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcript.Transcription{}, fmt.Errorf("%w: decode response: %w", domain.ErrTranscriptionFailed, err)
	}

	return transcript.Transcription{
		Text:     strings.TrimSpace(out.Transcription),
		Duration: strings.TrimSpace(out.Duration),
	}, nil
}

// multipartFile reads path into a multipart body with a single "file" part.
// Clips are a few seconds long, so buffering keeps the request retry-safe.
func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s not found", domain.ErrTranscriptionFailed, path)
		}
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
