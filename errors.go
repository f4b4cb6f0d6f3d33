package cellarcache

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidNamespace = errors.New("cellarcache: namespace must not contain ':'")
	ErrInvalidMaxSize   = errors.New("cellarcache: max size must not be negative")
)

// StorageError describes a failed store operation. The cache never returns it
// to callers of Get/Set; it is what loggers and hooks receive.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cellarcache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
