package blurhasher

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MaxInputPixels caps the width times height accepted from an image header.
const MaxInputPixels = 268402689

// DecodeImage reads the image header first and refuses anything above
// MaxInputPixels before a raster is allocated for it.
func DecodeImage(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxInputPixels {
		return nil, format, fmt.Errorf("%w: %s of %dx%d exceeds %d pixels",
			ErrImageTooLarge, format, cfg.Width, cfg.Height, MaxInputPixels)
	}
	return image.Decode(bytes.NewReader(data))
}

// ImageDecoder decodes jpeg, png, gif and webp renditions into RGBA pixels.
type ImageDecoder struct{}

// NewImageDecoder creates the default decoder
func NewImageDecoder() Decoder {
	return &ImageDecoder{}
}

// Decode expands any source layout (gray, paletted, YCbCr, RGB) to four
// non-premultiplied channels. No color-space conversion is applied.
func (d *ImageDecoder) Decode(data []byte) (pb *PixelBuffer, err error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty rendition")}
	}

	defer func() {
		if r := recover(); r != nil {
			pb = nil
			err = &DecodeError{Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	src, format, err := DecodeImage(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty %s image", format)}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	return &PixelBuffer{
		Pix:    dst.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
