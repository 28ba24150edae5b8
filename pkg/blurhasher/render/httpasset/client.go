// Package httpasset requests renditions from the host's asset endpoint.
package httpasset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// Client implements blurhasher.AssetService over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sends a static bearer token with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the host at baseURL
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// AssetURL returns the rendition URL for id
func (c *Client) AssetURL(id string, opts blurhasher.RenditionOptions) string {
	query := url.Values{}
	if opts.MaxWidth > 0 {
		query.Set("width", strconv.Itoa(opts.MaxWidth))
	}
	if opts.WithoutEnlargement {
		query.Set("withoutEnlargement", "true")
	}
	if opts.Format != "" {
		query.Set("format", opts.Format)
	}

	u := c.baseURL + "/assets/" + url.PathEscape(id)
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// GetAsset fetches the rendition. The caller closes the returned body.
func (c *Client) GetAsset(ctx context.Context, id string, opts blurhasher.RenditionOptions) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AssetURL(id, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request asset: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: asset %s", blurhasher.ErrFileNotFound, id)
	}
	return nil, fmt.Errorf("asset request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
