package blurhasher

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrFileNotFound indicates the file record does not exist
	ErrFileNotFound = errors.New("file not found")

	// ErrFieldNotFound indicates the schema field does not exist
	ErrFieldNotFound = errors.New("field not found")

	// ErrAlreadyHashed indicates the file already carries a blurhash and the run was not forced
	ErrAlreadyHashed = errors.New("file already has a blurhash")

	// ErrUnsupportedType indicates the file is not a raster image with known dimensions
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrUnsupportedFormat indicates a rendition format the renderer cannot produce
	ErrUnsupportedFormat = errors.New("unsupported rendition format")

	// ErrImageTooLarge indicates an image header declaring more pixels than MaxInputPixels
	ErrImageTooLarge = errors.New("image too large")

	// ErrInvalidPixelBuffer indicates a pixel buffer whose size does not match its dimensions
	ErrInvalidPixelBuffer = errors.New("invalid pixel buffer")
)

// UnsupportedTypeError explains why a file was rejected by the eligibility filter
type UnsupportedTypeError struct {
	FileID string
	Type   string
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("file %s of type %q is not supported: %s", e.FileID, e.Type, e.Reason)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// RenditionError represents a failure to obtain or drain the rendition
type RenditionError struct {
	FileID string
	Err    error
}

func (e *RenditionError) Error() string {
	return fmt.Sprintf("rendition failed for file %s: %v", e.FileID, e.Err)
}

func (e *RenditionError) Unwrap() error {
	return e.Err
}

// DecodeError represents corrupt or unparseable rendition bytes
type DecodeError struct {
	FileID string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.FileID == "" {
		return fmt.Sprintf("decode failed: %v", e.Err)
	}
	return fmt.Sprintf("decode failed for file %s: %v", e.FileID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError represents a failure of the hash encoder
type EncodeError struct {
	FileID string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode failed for file %s: %v", e.FileID, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// PersistError represents a failed write to the file records store
type PersistError struct {
	FileID string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist failed for file %s: %v", e.FileID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsSkip reports whether err is a benign skip rather than a failure:
// a missing file or field, an unsupported type, or an existing hash.
func IsSkip(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrAlreadyHashed)
}
