package blurhasher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

func TestCheckEligibility(t *testing.T) {
	dims := func(f blurhasher.File) *blurhasher.File {
		f.Width, f.Height = intPtr(800), intPtr(600)
		return &f
	}

	tests := []struct {
		name    string
		file    *blurhasher.File
		force   bool
		wantErr error
	}{
		{"nil file", nil, false, blurhasher.ErrFileNotFound},
		{"png without hash", dims(blurhasher.File{ID: "f1", Type: "image/png"}), false, nil},
		{"jpeg forced", dims(blurhasher.File{ID: "f1", Type: "image/jpeg", Blurhash: "x"}), true, nil},
		{"webp", dims(blurhasher.File{ID: "f1", Type: "image/webp"}), false, nil},
		{"existing hash not forced", dims(blurhasher.File{ID: "f1", Type: "image/png", Blurhash: "x"}), false, blurhasher.ErrAlreadyHashed},
		{"svg", dims(blurhasher.File{ID: "f1", Type: "image/svg+xml"}), true, blurhasher.ErrUnsupportedType},
		{"no dimensions", &blurhasher.File{ID: "f1", Type: "image/png"}, true, blurhasher.ErrUnsupportedType},
		{"width only", &blurhasher.File{ID: "f1", Type: "image/png", Width: intPtr(1)}, true, blurhasher.ErrUnsupportedType},
		{"document", dims(blurhasher.File{ID: "f1", Type: "application/pdf"}), true, blurhasher.ErrUnsupportedType},
		{"empty type", dims(blurhasher.File{ID: "f1"}), true, blurhasher.ErrUnsupportedType},
		{"video", dims(blurhasher.File{ID: "f1", Type: "video/mp4"}), true, blurhasher.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := blurhasher.CheckEligibility(tt.file, tt.force)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.True(t, blurhasher.IsEligible(tt.file, tt.force))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, blurhasher.IsEligible(tt.file, tt.force))
		})
	}
}

func TestCheckEligibility_ExistingHashCheckedBeforeType(t *testing.T) {
	file := &blurhasher.File{ID: "f1", Type: "image/svg+xml", Blurhash: "x"}
	assert.ErrorIs(t, blurhasher.CheckEligibility(file, false), blurhasher.ErrAlreadyHashed)
}
