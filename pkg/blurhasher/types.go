package blurhasher

import "time"

// Collection and field names on the host platform.
const (
	FilesCollection = "directus_files"
	FieldName       = "blurhash"
	FieldMaxLength  = 255
)

// Blurhash component grid. Clients decoding the hash assume this grid, so it
// is not configurable.
const (
	XComponents = 4
	YComponents = 4
)

// Rendition defaults.
const (
	DefaultMaxWidth = 320
	DefaultFormat   = "webp"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

// Outcome constants (typed).
const (
	OutcomeHashed  Outcome = "hashed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// File is the projection of a file record the pipeline reads.
//
// Width and Height are nil for files the host could not measure (vector
// images, documents). Blurhash is empty when no hash has been stored yet.
type File struct {
	ID           string `json:"id"`
	Type         string `json:"type,omitempty"`
	Width        *int   `json:"width,omitempty"`
	Height       *int   `json:"height,omitempty"`
	Blurhash     string `json:"blurhash,omitempty"`
	Storage      string `json:"storage,omitempty"`
	FilenameDisk string `json:"filename_disk,omitempty"`
}

// FileUpdate is a partial file record. Only Blurhash is ever written.
type FileUpdate struct {
	Blurhash string `json:"blurhash"`
}

// Fields read from the file record for eligibility.
var eligibilityFields = []string{"id", "type", "width", "height", "blurhash"}

// EligibilityFields returns the field projection the pipeline reads.
func EligibilityFields() []string {
	fields := make([]string, len(eligibilityFields))
	copy(fields, eligibilityFields)
	return fields
}

// FieldSchema describes the database side of a field.
type FieldSchema struct {
	DataType   string `json:"data_type"`
	MaxLength  int    `json:"max_length"`
	IsNullable bool   `json:"is_nullable"`
}

// FieldMeta describes how the host displays a field.
type FieldMeta struct {
	Interface string `json:"interface,omitempty"`
	Note      string `json:"note,omitempty"`
	Width     string `json:"width,omitempty"`
	Hidden    bool   `json:"hidden"`
	Readonly  bool   `json:"readonly"`
}

// FieldDefinition is a typed field on a collection.
type FieldDefinition struct {
	Collection string      `json:"collection"`
	Field      string      `json:"field"`
	Type       string      `json:"type"`
	Schema     FieldSchema `json:"schema"`
	Meta       FieldMeta   `json:"meta"`
}

// BlurhashField returns the definition created by Bootstrap.
func BlurhashField() FieldDefinition {
	return FieldDefinition{
		Collection: FilesCollection,
		Field:      FieldName,
		Type:       "string",
		Schema: FieldSchema{
			DataType:   "varchar",
			MaxLength:  FieldMaxLength,
			IsNullable: true,
		},
		Meta: FieldMeta{
			Interface: "input",
			Note:      "Blurred placeholder computed from the image. Generated automatically.",
			Width:     "full",
			Readonly:  true,
		},
	}
}

// RenditionOptions controls the rendition requested from the AssetService.
type RenditionOptions struct {
	MaxWidth           int    `json:"max_width"`
	WithoutEnlargement bool   `json:"without_enlargement"`
	Format             string `json:"format"`
}

// DefaultRenditionOptions returns a 320px wide, never upscaled webp rendition.
func DefaultRenditionOptions() RenditionOptions {
	return RenditionOptions{
		MaxWidth:           DefaultMaxWidth,
		WithoutEnlargement: true,
		Format:             DefaultFormat,
	}
}

// PixelBuffer holds decoded RGBA pixels, 4 bytes per pixel, row-major.
type PixelBuffer struct {
	Pix    []byte
	Width  int
	Height int
}

// Result describes one pipeline run.
type Result struct {
	FileID   string        `json:"file_id"`
	Outcome  Outcome       `json:"outcome"`
	Hash     string        `json:"hash,omitempty"`
	Reason   error         `json:"-"`
	Duration time.Duration `json:"duration"`
}
