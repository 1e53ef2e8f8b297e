// Package storeerr defines the error taxonomy shared by the content-addressed
// store, the recipe store, and the file manager.
package storeerr

import (
	"errors"
	"fmt"
)

// Code identifies the class of failure a store operation reported.
type Code int

const (
	// NotFound means a path (or, in the CAS, a hash) is absent.
	NotFound Code = iota
	// StorageCorrupt means a referenced chunk is missing or failed to decompress.
	StorageCorrupt
	// SerializationError means a recipe failed to round-trip through its wire format.
	SerializationError
	// IoError means the underlying filesystem rejected an operation.
	IoError
	// DbError means the recipe store's embedded KV engine rejected an operation.
	DbError
)

func (c Code) String() string {
	switch c {
	case NotFound:
		return "not found"
	case StorageCorrupt:
		return "storage corrupt"
	case SerializationError:
		return "serialization error"
	case IoError:
		return "i/o error"
	case DbError:
		return "db error"
	default:
		return "unknown error"
	}
}

// Error is a tagged error carrying one of the Code values above plus
// whatever context and wrapped cause produced it.
type Error struct {
	Code    Code
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Context)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged error with no wrapped cause.
func New(code Code, context string) error {
	return &Error{Code: code, Context: context}
}

// Wrap builds a tagged error around an underlying cause.
func Wrap(code Code, context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Context: context, Err: err}
}

// NotFoundf is a convenience constructor for the common NotFound case.
func NotFoundf(format string, args ...any) error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// Corruptf is a convenience constructor for the common StorageCorrupt case,
// carrying the offending hash as context.
func Corruptf(hash string) error {
	return New(StorageCorrupt, fmt.Sprintf("chunk %s", hash))
}

// CodeOf extracts the Code from err, defaulting to IoError if err does not
// carry one of our tags.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return IoError
}

// Is reports whether the first *Error found in err's chain carries the
// given Code; tagged errors nested beneath it are not examined.
func Is(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
