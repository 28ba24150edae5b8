package httpasset_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/render/httpasset"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := httpasset.New("")
	assert.Error(t, err)
}

func TestAssetURL(t *testing.T) {
	client, err := httpasset.New("https://cms.example.com/")
	require.NoError(t, err)

	got := client.AssetURL("f1", blurhasher.DefaultRenditionOptions())
	assert.Equal(t, "https://cms.example.com/assets/f1?format=webp&width=320&withoutEnlargement=true", got)
}

func TestGetAsset(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")

		switch r.URL.Path {
		case "/assets/f1":
			w.Header().Set("Content-Type", "image/webp")
			_, _ = w.Write([]byte("rendition"))
		case "/assets/missing":
			http.Error(w, `{"errors":[{"message":"Forbidden"}]}`, http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client, err := httpasset.New(server.URL, httpasset.WithToken("secret"), httpasset.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		rc, err := client.GetAsset(ctx, "f1", blurhasher.DefaultRenditionOptions())
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "rendition", string(data))
		assert.Equal(t, "/assets/f1", gotPath)
		assert.Equal(t, "320", gotQuery["width"][0])
		assert.Equal(t, "true", gotQuery["withoutEnlargement"][0])
		assert.Equal(t, "webp", gotQuery["format"][0])
		assert.Equal(t, "Bearer secret", gotAuth)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetAsset(ctx, "missing", blurhasher.DefaultRenditionOptions())
		assert.ErrorIs(t, err, blurhasher.ErrFileNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.GetAsset(ctx, "broken", blurhasher.DefaultRenditionOptions())
		require.Error(t, err)
		assert.NotErrorIs(t, err, blurhasher.ErrFileNotFound)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestGetAsset_WithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := httpasset.New(server.URL)
	require.NoError(t, err)

	rc, err := client.GetAsset(context.Background(), "f1", blurhasher.RenditionOptions{})
	require.NoError(t, err)
	rc.Close()
	assert.Empty(t, gotAuth)
}
