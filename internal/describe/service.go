// Package describe generates alt text for catalog images with a vision model.
package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/gemini"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/ollama"
	"github.com/lehigh-university-libraries/gallery/internal/openai"
	"github.com/lehigh-university-libraries/gallery/internal/providers"
	"golang.org/x/sync/errgroup"
)

// MaxAltText caps generated descriptions.
const MaxAltText = 250

// Fetcher reads the media behind a locator
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*media.Payload, error)
}

// NewProvider returns the provider by name. An empty name reads
// GALLERY_DESCRIBE_PROVIDER and falls back to ollama.
func NewProvider(name string) (providers.Provider, error) {
	if name == "" {
		name = os.Getenv("GALLERY_DESCRIBE_PROVIDER")
		if name == "" {
			name = "ollama"
		}
	}

	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel is the model used when none is given.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	}
	return ""
}

// NeedsDescription reports whether an entry has no meaningful alt text: it is
// empty or one of the generated placeholders.
func NeedsDescription(e models.Entry) bool {
	alt := strings.TrimSpace(e.AltText)
	switch {
	case alt == "":
		return true
	case e.Title != "" && alt == e.Title+" image":
		return true
	case strings.HasPrefix(alt, "Upload by "):
		return true
	}
	return false
}

// Describable reports whether the entry is a raster image a vision model can read.
func Describable(e models.Entry) bool {
	if delivery.RenderFor(e) != delivery.RenderImage {
		return false
	}
	return models.Extension(e.Locator) != "svg"
}

type Service struct {
	provider    providers.Provider
	model       string
	fetcher     Fetcher
	concurrency int
}

func NewService(p providers.Provider, model string, fetcher Fetcher) *Service {
	if model == "" {
		model = DefaultModel(p.Name())
	}
	return &Service{provider: p, model: model, fetcher: fetcher, concurrency: 4}
}

// Describe generates alt text for one entry.
func (s *Service) Describe(ctx context.Context, e models.Entry) (string, error) {
	payload, err := s.fetcher.Fetch(ctx, e.Locator)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", e.Locator, err)
	}

	raw, err := s.provider.Describe(ctx, providers.Config{
		Model:       s.model,
		Temperature: 0.1,
		Prompt:      buildPrompt(e),
		Image:       payload.Data,
		MimeType:    payload.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe %s: %w", e.Locator, err)
	}

	alt := extractAltText(raw)
	if alt == "" {
		return "", fmt.Errorf("empty description for %s", e.Locator)
	}
	return alt, nil
}

// DescribeAll fills in alt text for every describable entry that lacks it.
// Failures are logged and leave the entry unchanged. It returns the updated
// entries and how many were described.
func (s *Service) DescribeAll(ctx context.Context, entries []models.Entry) ([]models.Entry, int) {
	out := make([]models.Entry, len(entries))
	copy(out, entries)

	var described atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, e := range out {
		if !Describable(e) || !NeedsDescription(e) {
			continue
		}
		g.Go(func() error {
			alt, err := s.Describe(gctx, e)
			if err != nil {
				slog.Error("Failed to describe entry", "locator", e.Locator, "provider", s.provider.Name(), "err", err)
				return nil
			}
			out[i].AltText = alt
			described.Add(1)
			slog.Info("Described entry", "locator", e.Locator, "length", len(alt))
			return nil
		})
	}
	_ = g.Wait()
	return out, int(described.Load())
}

func buildPrompt(e models.Entry) string {
	var b strings.Builder
	b.WriteString(`You write alt text for images in a public media gallery.
Describe what the image shows in one plain sentence a screen reader user would find useful.
Do not start with "Image of" or "Picture of". Do not mention the file name.
Respond with JSON only: {"alt_text": "..."}`)
	if e.Title != "" {
		fmt.Fprintf(&b, "\n\nThe image is titled %q.", e.Title)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, " Tags: %s.", strings.Join(e.Tags, ", "))
	}
	return b.String()
}

// extractAltText parses the JSON reply and falls back to the first line of
// plain text.
func extractAltText(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var result struct {
		AltText string `json:"alt_text"`
	}
	alt := ""
	if err := json.Unmarshal([]byte(response), &result); err == nil {
		alt = result.AltText
	} else {
		slog.Debug("Failed to parse JSON response, using raw output", "err", err)
		alt, _, _ = strings.Cut(response, "\n")
	}

	alt = strings.Trim(strings.TrimSpace(alt), `"`)
	if len(alt) > MaxAltText {
		cut := strings.LastIndex(alt[:MaxAltText], " ")
		if cut <= 0 {
			cut = MaxAltText
		}
		alt = strings.TrimSpace(alt[:cut])
	}
	return alt
}
