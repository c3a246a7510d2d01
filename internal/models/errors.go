package models

import "errors"

var (
	// ErrNotConnected is returned while the document store is unreachable.
	ErrNotConnected = errors.New("store not connected")
	// ErrAuthFailure is returned for any credential mismatch.
	ErrAuthFailure = errors.New("invalid credentials")
	// ErrNotFound is returned when a record or static file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRequest is returned for undecodable or invalid input.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrPersistence wraps read and write failures of the document store.
	ErrPersistence = errors.New("persistence error")
)
