package domain

import "errors"

var (
	// ErrInvalidQuery signals a search request that cannot be served.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidSchema signals an inconsistent query shape or result template.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrIndexNotFound signals that the configured index does not exist.
	ErrIndexNotFound = errors.New("index not found")
	// ErrEngineUnavailable signals that the search engine could not be reached or failed.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrTranscriptionFailed signals an ASR backend failure for a single file.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrUnauthorized signals a missing or unknown API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnsupportedAudio signals a file extension the ASR backend does not accept.
	ErrUnsupportedAudio = errors.New("unsupported audio file")
)
