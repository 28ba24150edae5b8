package blurhasher

import "context"

// Service defines the main interface for blurhash enrichment
type Service interface {
	// Bootstrap makes sure the blurhash field exists on the files collection.
	// Running it when the field is present is a no-op.
	Bootstrap(ctx context.Context) error

	// Process runs the pipeline for one file. Benign skips return a Result
	// with OutcomeSkipped and a nil error; failures return OutcomeFailed and
	// a typed error (*RenditionError, *DecodeError, *EncodeError, *PersistError).
	Process(ctx context.Context, fileID string, force bool) (*Result, error)

	// HandleUpload processes a freshly uploaded file, always recomputing.
	// Failures are logged and never returned.
	HandleUpload(ctx context.Context, fileID string)

	// HandleUpdate processes updated files one at a time, only filling in
	// missing hashes. Failures are logged and never returned.
	HandleUpdate(ctx context.Context, fileIDs []string)
}
