// Package archive reads the OOI raw data archive over HTTP: directory
// listings rendered as HTML index pages and whole interval files.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// DefaultRoot is the public OOI raw data server.
const DefaultRoot = "https://rawdata.oceanobservatories.org/files"

// Options tunes the retry behaviour of a Client.
type Options struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// Client implements ports.Archive against an HTTP file server.
type Client struct {
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

var _ ports.Archive = (*Client)(nil)

// NewClient constructs a Client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:  httpClient,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
	}
}

// List returns the absolute URLs of the files in the directory at dirURL.
// A 404 is reported as ports.ErrDirectoryNotFound.
func (c *Client) List(ctx context.Context, dirURL string) ([]string, error) {
	body, err := c.get(ctx, dirURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	links, err := parseIndex(dirURL, body)
	if err != nil {
		return nil, fmt.Errorf("archive adapter: parse listing %s: %w", dirURL, err)
	}
	return links, nil
}

// Fetch downloads one file.
func (c *Client) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	body, err := c.get(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("archive adapter: read %s: %w", fileURL, err)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("archive adapter: %w", err)
	}
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("archive adapter: %w", ports.StatusError{URL: url, StatusCode: resp.StatusCode})
	}
	return resp.Body, nil
}
