package blurhasher

import (
	"context"
	"io"
)

// FieldService reads and creates typed fields on the host schema
type FieldService interface {
	// ReadField returns ErrFieldNotFound when the field does not exist
	ReadField(ctx context.Context, collection, field string) (*FieldDefinition, error)

	// CreateField adds a field to the collection
	CreateField(ctx context.Context, collection string, def FieldDefinition) error
}

// FileService reads and updates file records
type FileService interface {
	// ReadFile returns ErrFileNotFound when no record has the given id.
	// fields narrows the projection; an empty list reads every known field.
	ReadFile(ctx context.Context, id string, fields []string) (*File, error)

	// UpdateFile writes a partial record
	UpdateFile(ctx context.Context, id string, update FileUpdate) error
}

// AssetService renders a derived copy of a stored file
type AssetService interface {
	// GetAsset returns the rendition as a stream the caller must close
	GetAsset(ctx context.Context, id string, opts RenditionOptions) (io.ReadCloser, error)
}

// Decoder turns compressed rendition bytes into RGBA pixels.
// Implementations report every failure as an error and never panic.
type Decoder interface {
	Decode(data []byte) (*PixelBuffer, error)
}

// FileServiceFactory returns a file service scoped to the current schema.
// It is called once per pipeline run.
type FileServiceFactory func(ctx context.Context) (FileService, error)

// AssetServiceFactory returns an asset service scoped to the current schema.
// It is called once per pipeline run.
type AssetServiceFactory func(ctx context.Context) (AssetService, error)

// FieldServiceFactory returns a field service scoped to the current schema.
type FieldServiceFactory func(ctx context.Context) (FieldService, error)
