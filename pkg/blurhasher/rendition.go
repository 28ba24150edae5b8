package blurhasher

import (
	"bytes"
	"context"
	"fmt"
)

// fetchRendition requests the rendition and drains it completely. The decoder
// needs the whole byte sequence, so chunks are accumulated before returning.
func fetchRendition(ctx context.Context, assets AssetService, fileID string, opts RenditionOptions) ([]byte, error) {
	reader, err := assets.GetAsset(ctx, fileID, opts)
	if err != nil {
		return nil, &RenditionError{FileID: fileID, Err: err}
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, &RenditionError{FileID: fileID, Err: fmt.Errorf("drain rendition: %w", err)}
	}
	if buf.Len() == 0 {
		return nil, &RenditionError{FileID: fileID, Err: fmt.Errorf("empty rendition")}
	}
	return buf.Bytes(), nil
}
