package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrUnavailable   = errors.New("db: backend unavailable")
)

// Op constants name engine and cache operations for error context.
const (
	OpPing        = "PING"
	OpSearch      = "SEARCH"
	OpCreateIndex = "INDICES.CREATE"
	OpDeleteIndex = "INDICES.DELETE"
	OpIndexExists = "INDICES.EXISTS"
	OpRefresh     = "INDICES.REFRESH"
	OpCount       = "COUNT"
	OpBulk        = "BULK"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
