package media

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

// Resolver fetches absolute URLs over HTTP and site-relative locators from
// the content root.
type Resolver struct {
	Content fs.FS
	Remote  *Fetcher
}

func NewResolver(content fs.FS, remote *Fetcher) *Resolver {
	return &Resolver{Content: content, Remote: remote}
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func (r *Resolver) localPath(locator string) (string, error) {
	if r.Content == nil {
		return "", fmt.Errorf("no content root for %s", locator)
	}
	name := strings.TrimPrefix(path.Clean("/"+locator), "/")
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return name, nil
}

// Fetch reads the media behind a locator.
func (r *Resolver) Fetch(ctx context.Context, locator string) (*Payload, error) {
	if isRemote(locator) {
		return r.Remote.Fetch(ctx, locator)
	}
	name, err := r.localPath(locator)
	if err != nil {
		return nil, err
	}

	f, err := r.Content.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media data: %w", err)
	}
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("media too large (max %d bytes)", MaxPayload)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("media body is empty")
	}
	return &Payload{ContentType: contentType(name, data), Data: data}, nil
}

// Head returns the size and type of the media behind a locator.
func (r *Resolver) Head(ctx context.Context, locator string) (*Info, error) {
	if isRemote(locator) {
		return r.Remote.Head(ctx, locator)
	}
	name, err := r.localPath(locator)
	if err != nil {
		return nil, err
	}
	st, err := fs.Stat(r.Content, name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media: %w", err)
	}
	return &Info{ContentType: mime.TypeByExtension(path.Ext(name)), Size: st.Size()}, nil
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
