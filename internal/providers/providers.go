// Package providers defines the vision model interface used to describe media.
package providers

import (
	"context"
	"strings"
)

// Config represents one request to a vision-capable LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MimeType    string
}

// ImageFormat is the subtype of the image MIME type, e.g. "png" for image/png.
func (c Config) ImageFormat() string {
	mt, _, _ := strings.Cut(c.MimeType, ";")
	if _, sub, ok := strings.Cut(mt, "/"); ok && sub != "" {
		return sub
	}
	return "jpeg"
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	Describe(ctx context.Context, config Config) (string, error)
}
