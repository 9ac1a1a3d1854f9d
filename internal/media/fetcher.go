// Package media fetches media payloads and metadata over HTTP.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// MaxPayload caps how much of a media body is read into memory.
const MaxPayload = 50 * 1024 * 1024

// Payload is a fetched media body
type Payload struct {
	ContentType string
	Data        []byte
}

// Info is the metadata of a media resource
type Info struct {
	ContentType string
	Size        int64
}

// Fetcher retrieves media from the network
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new media fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads a media body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create media request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media data: %w", err)
	}
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("media too large (max %d bytes)", MaxPayload)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("media body is empty")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Payload{ContentType: contentType, Data: data}, nil
}

// Head returns the size and type of a media resource without downloading it.
func (f *Fetcher) Head(ctx context.Context, url string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HEAD request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to HEAD media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD returned status %d", resp.StatusCode)
	}

	info := &Info{ContentType: resp.Header.Get("Content-Type")}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		size, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid content-length %q: %w", cl, err)
		}
		info.Size = size
	}
	return info, nil
}
