package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	ErrDocumentNotFound = errors.New("db: document not found")
	ErrIndexNotFound    = errors.New("db: index not found")
	ErrIndexExists      = errors.New("db: index already exists")
	ErrNotSupported     = errors.New("db: operation not supported by backend")
	ErrScrollExpired    = errors.New("db: scroll cursor expired")
)

// Op constants name backend operations for error context and metrics.
const (
	OpPing        = "ping"
	OpCreate      = "create"
	OpIndex       = "index"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpBulk        = "bulk"
	OpGet         = "get"
	OpMultiGet    = "mget"
	OpSearch      = "search"
	OpCount       = "count"
	OpScroll      = "scroll"
	OpClearScroll = "clear_scroll"
	OpCreateIndex = "indices.create"
	OpDeleteIndex = "indices.delete"
	OpIndexExists = "indices.exists"
	OpPutMapping  = "indices.put_mapping"
	OpGetMapping  = "indices.get_mapping"
	OpOpenIndex   = "indices.open"
	OpCloseIndex  = "indices.close"
	OpGetSettings = "indices.get_settings"
	OpPutSettings = "indices.put_settings"
	OpStats       = "indices.stats"
	OpAnalyze     = "indices.analyze"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ResponseError is a backend rejection of a whole request.
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Type, e.Reason)
}

// IsStatus reports whether err carries a ResponseError with the given status.
func IsStatus(err error, status int) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Status == status
}
