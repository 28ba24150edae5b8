// Package local renders downsized copies of stored originals in process.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	// Source formats the originals may be stored in.
	_ "image/gif"

	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/storage"
)

// DefaultFormat is the output format used when a request names none.
const DefaultFormat = "jpeg"

// Renderer implements blurhasher.AssetService over named storage backends.
type Renderer struct {
	files    blurhasher.FileService
	stores   map[string]storage.Store
	fallback string
	quality  int
}

// Option configures a Renderer
type Option func(*Renderer)

// WithStore registers a backend under the storage name recorded on files
func WithStore(name string, store storage.Store) Option {
	return func(r *Renderer) {
		r.stores[name] = store
	}
}

// WithDefaultStore names the backend used for files without a storage name
func WithDefaultStore(name string) Option {
	return func(r *Renderer) {
		r.fallback = name
	}
}

// WithJPEGQuality sets the quality of jpeg renditions
func WithJPEGQuality(quality int) Option {
	return func(r *Renderer) {
		r.quality = quality
	}
}

// New creates a renderer. At least one store must be registered.
func New(files blurhasher.FileService, options ...Option) (*Renderer, error) {
	if files == nil {
		return nil, errors.New("file service is required")
	}

	r := &Renderer{
		files:   files,
		stores:  make(map[string]storage.Store),
		quality: 80,
	}
	for _, option := range options {
		option(r)
	}

	if len(r.stores) == 0 {
		return nil, errors.New("at least one store is required")
	}
	if r.fallback == "" && len(r.stores) == 1 {
		for name := range r.stores {
			r.fallback = name
		}
	}
	return r, nil
}

// GetAsset loads the original of id, downsizes it and re-encodes it.
func (r *Renderer) GetAsset(ctx context.Context, id string, opts blurhasher.RenditionOptions) (io.ReadCloser, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = DefaultFormat
	}
	if format == "jpg" {
		format = "jpeg"
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: %s", blurhasher.ErrUnsupportedFormat, opts.Format)
	}

	file, err := r.files.ReadFile(ctx, id, []string{"storage", "filename_disk"})
	if err != nil {
		return nil, err
	}
	if file.FilenameDisk == "" {
		return nil, fmt.Errorf("file %s has no stored original", id)
	}

	store, err := r.store(file.Storage)
	if err != nil {
		return nil, err
	}

	reader, err := store.Open(ctx, file.FilenameDisk)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: original %s", blurhasher.ErrFileNotFound, file.FilenameDisk)
		}
		return nil, fmt.Errorf("open original: %w", err)
	}
	defer reader.Close()

	var original bytes.Buffer
	if _, err := original.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("read original: %w", err)
	}

	src, _, err := blurhasher.DecodeImage(original.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}

	dst := Downsize(src, opts.MaxWidth, opts.WithoutEnlargement)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.quality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s rendition: %w", format, err)
	}

	return io.NopCloser(&buf), nil
}

func (r *Renderer) store(name string) (storage.Store, error) {
	if name == "" {
		name = r.fallback
	}
	store, ok := r.stores[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage %q", name)
	}
	return store, nil
}

// Downsize scales src to maxWidth keeping the aspect ratio. A non-positive
// maxWidth returns src unchanged, as does a narrower source when
// withoutEnlargement is set.
func Downsize(src image.Image, maxWidth int, withoutEnlargement bool) image.Image {
	width := src.Bounds().Dx()
	if maxWidth <= 0 || width == maxWidth {
		return src
	}
	if withoutEnlargement && width < maxWidth {
		return src
	}
	return resize.Resize(uint(maxWidth), 0, src, resize.Lanczos3)
}
