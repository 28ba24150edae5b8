package blurhasher

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
)

// Encode computes the blurhash of p using the fixed 4x4 component grid.
// It is a pure function of the pixel data.
func Encode(p *PixelBuffer) (string, error) {
	if p == nil || p.Width <= 0 || p.Height <= 0 {
		return "", fmt.Errorf("%w: empty buffer", ErrInvalidPixelBuffer)
	}
	if len(p.Pix) != 4*p.Width*p.Height {
		return "", fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidPixelBuffer, len(p.Pix), p.Width, p.Height)
	}

	img := &image.NRGBA{
		Pix:    p.Pix,
		Stride: 4 * p.Width,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}

	hash, err := blurhash.Encode(XComponents, YComponents, img)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
