package blurhasher

import "strings"

// CheckEligibility decides from file metadata alone whether a hash should be
// computed. It returns nil when the file is eligible, otherwise the reason it
// was skipped.
//
// force overrides the already-hashed check: uploads always recompute, updates
// only fill in a missing hash.
func CheckEligibility(file *File, force bool) error {
	if file == nil {
		return ErrFileNotFound
	}

	if !force && file.Blurhash != "" {
		return ErrAlreadyHashed
	}

	if file.Width == nil || file.Height == nil {
		return &UnsupportedTypeError{FileID: file.ID, Type: file.Type, Reason: "missing dimensions"}
	}

	if !strings.HasPrefix(file.Type, "image/") {
		return &UnsupportedTypeError{FileID: file.ID, Type: file.Type, Reason: "not an image"}
	}

	// Vector images have no raster to decode.
	if strings.Contains(file.Type, "svg") {
		return &UnsupportedTypeError{FileID: file.ID, Type: file.Type, Reason: "vector image"}
	}

	return nil
}

// IsEligible reports whether CheckEligibility accepts the file.
func IsEligible(file *File, force bool) bool {
	return CheckEligibility(file, force) == nil
}
