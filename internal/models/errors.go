package models

import "errors"

var (
	// ErrUnsupportedInput means extraction cannot interpret the file; nothing was written.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrNotFound means the referenced document id is absent from the record store.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidArgument marks malformed caller input such as an empty query.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexIncomplete means the record was stored but derived index writes failed.
	// The record store and vector index stay divergent until the next reindex.
	ErrIndexIncomplete = errors.New("index write incomplete")
)
