package blurhasher_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/repo/memory"
)

func intPtr(v int) *int { return &v }

// gradientPNG encodes a w×h image with a horizontal gradient
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type assetCall struct {
	ID   string
	Opts blurhasher.RenditionOptions
}

// recordingAssets serves fixed bytes and records every request
type recordingAssets struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls []assetCall
}

func (a *recordingAssets) GetAsset(ctx context.Context, id string, opts blurhasher.RenditionOptions) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, assetCall{ID: id, Opts: opts})
	if a.err != nil {
		return nil, a.err
	}
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

func (a *recordingAssets) Calls() []assetCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]assetCall(nil), a.calls...)
}

// countingFiles wraps the memory repository and counts updates
type countingFiles struct {
	*memory.Repository
	mu      sync.Mutex
	updates []string
	failOn  error
}

func (f *countingFiles) UpdateFile(ctx context.Context, id string, update blurhasher.FileUpdate) error {
	f.mu.Lock()
	f.updates = append(f.updates, id)
	f.mu.Unlock()
	if f.failOn != nil {
		return f.failOn
	}
	return f.Repository.UpdateFile(ctx, id, update)
}

func (f *countingFiles) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

// mockFields is a testify mock of blurhasher.FieldService
type mockFields struct {
	mock.Mock
}

func (m *mockFields) ReadField(ctx context.Context, collection, field string) (*blurhasher.FieldDefinition, error) {
	args := m.Called(ctx, collection, field)
	def, _ := args.Get(0).(*blurhasher.FieldDefinition)
	return def, args.Error(1)
}

func (m *mockFields) CreateField(ctx context.Context, collection string, def blurhasher.FieldDefinition) error {
	args := m.Called(ctx, collection, def)
	return args.Error(0)
}

// panickingDecoder fails the way a broken native decoder would
type panickingDecoder struct{}

func (panickingDecoder) Decode([]byte) (*blurhasher.PixelBuffer, error) {
	panic("decoder exploded")
}

var errBoom = errors.New("boom")

type fixture struct {
	files  *countingFiles
	assets *recordingAssets
	svc    blurhasher.Service
}

func newFixture(t *testing.T, opts ...blurhasher.Option) *fixture {
	t.Helper()
	f := &fixture{
		files:  &countingFiles{Repository: memory.New()},
		assets: &recordingAssets{data: gradientPNG(t, 320, 240)},
	}
	options := append([]blurhasher.Option{
		blurhasher.WithFileService(f.files),
		blurhasher.WithAssetService(f.assets),
		blurhasher.WithFieldService(f.files.Repository),
	}, opts...)

	svc, err := blurhasher.New(options...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) addFile(t *testing.T, file blurhasher.File) {
	t.Helper()
	_, err := f.files.CreateFile(context.Background(), &file)
	require.NoError(t, err)
}

func (f *fixture) stored(t *testing.T, id string) string {
	t.Helper()
	file, err := f.files.ReadFile(context.Background(), id, []string{"blurhash"})
	require.NoError(t, err)
	return file.Blurhash
}

// oversizedPNG returns a tiny png whose header declares width×height RGBA
// pixels while carrying almost no pixel data.
func oversizedPNG(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha
	writePNGChunk(&buf, "IHDR", ihdr)
	writePNGChunk(&buf, "IDAT", []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	writePNGChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func writePNGChunk(buf *bytes.Buffer, kind string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])

	body := append([]byte(kind), data...)
	buf.Write(body)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(body))
	buf.Write(sum[:])
}
