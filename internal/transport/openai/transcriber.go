package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/transcript"
)

// supportedExt lists the audio containers accepted by the transcription endpoint.
var supportedExt = map[string]bool{
	".flac": true, ".m4a": true, ".mp3": true, ".mp4": true, ".mpeg": true,
	".mpga": true, ".oga": true, ".ogg": true, ".wav": true, ".webm": true,
}

// Transcriber is a Whisper transcription backend using the OpenAI-compatible API.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

// Config holds the transcription provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Language is an ISO-639-1 hint; empty lets the model detect it.
	Language string
}

// NewTranscriber creates an OpenAI-compatible transcription backend.
func NewTranscriber(cfg *Config) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &Transcriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}
}

// Name identifies the backend.
func (t *Transcriber) Name() string { return "openai" }

// Ping verifies API availability via ListModels (free endpoint).
func (t *Transcriber) Ping(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Transcribe uploads one audio file. verbose_json is requested so the clip duration comes back too.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (transcript.Transcription, error) {
	if !supportedExt[strings.ToLower(filepath.Ext(path))] {
		return transcript.Transcription{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedAudio, filepath.Base(path))
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: t.language,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return transcript.Transcription{}, ctxErr
		}
		return transcript.Transcription{}, parseAPIError(err)
	}

	out := transcript.Transcription{Text: strings.TrimSpace(resp.Text)}
	if resp.Duration > 0 {
		out.Duration = strconv.FormatFloat(resp.Duration, 'f', -1, 64)
	}
	return out, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrTranscriptionFailed.
func parseAPIError(err error) error {
	wrap := domain.ErrTranscriptionFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("transcription API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("transcription API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("transcription API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("transcription request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (FastAPI-style servers).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
