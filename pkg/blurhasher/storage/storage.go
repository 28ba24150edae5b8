// Package storage defines where the local renderer reads original files from.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound indicates the key does not exist in the backend
var ErrObjectNotFound = errors.New("object not found")

// Store defines the interface for storage backends
type Store interface {
	// Put writes content under objectKey, replacing any previous content
	Put(ctx context.Context, objectKey string, reader io.Reader) error

	// Open returns the content stored under objectKey
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)
}
