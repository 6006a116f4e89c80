// Package apperr holds sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks arguments that can never succeed as given, such as
	// an empty title or a value that does not fit its declared type.
	ErrInvalid = errors.New("invalid")
)
