package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the store cannot be initialized within
	// the retry budget.
	ErrUnavailable = errors.New("blob store unavailable")
	// ErrNotFound is returned when a key does not resolve to a stored blob.
	ErrNotFound = errors.New("blob not found")
)

// WriteError wraps an I/O failure while committing a blob. No partial blob
// remains retrievable when a WriteError is returned.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("blob store: write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps an I/O failure while streaming a blob body. The sink may
// have received a partial write; callers must not treat delivery as complete.
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("blob store: read %s: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
