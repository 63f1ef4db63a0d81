package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDuplicateKey is wrapped by store implementations when a write loses to
// a unique constraint. The resolvers treat it as a recoverable condition,
// never as an ingestion failure.
var ErrDuplicateKey = errors.New("duplicate key")

// ValidationError reports field-level problems with a single payload item.
// It never aborts a batch: the caller skips the offending item and reports
// the field map back to the client.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) add(field, msg string) {
	if _, dup := e.Fields[field]; !dup {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) ok() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "invalid payload: " + strings.Join(parts, "; ")
}
