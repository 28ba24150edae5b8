package scan_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"

	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// tinyPNG serves a 4×4 png for every request
type tinyPNG struct{}

func (tinyPNG) GetAsset(ctx context.Context, id string, opts blurhasher.RenditionOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}
