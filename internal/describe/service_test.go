package describe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/providers"
)

type fakeProvider struct {
	mu      sync.Mutex
	configs []providers.Config
	reply   string
	err     error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Describe(ctx context.Context, config providers.Config) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, config)
	return p.reply, p.err
}

type fakeFetcher struct {
	missing map[string]bool
}

func (f fakeFetcher) Fetch(ctx context.Context, locator string) (*media.Payload, error) {
	if f.missing[locator] {
		return nil, errors.New("not found")
	}
	return &media.Payload{ContentType: "image/png", Data: []byte("png")}, nil
}

func entry(t *testing.T, locator, title, alt string) models.Entry {
	t.Helper()
	e, err := models.NewEntry(models.OriginStatic, locator)
	if err != nil {
		t.Fatal(err)
	}
	e.Title = title
	e.AltText = alt
	return e
}

func TestExtractAltText(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{"json", `{"alt_text": "A grey cat asleep on a sofa"}`, "A grey cat asleep on a sofa"},
		{"fenced json", "```json\n{\"alt_text\": \"A red bicycle\"}\n```", "A red bicycle"},
		{"plain text", "A dog running on a beach\nExtra notes", "A dog running on a beach"},
		{"quoted", `"A lighthouse at dusk"`, "A lighthouse at dusk"},
		{"long", strings.Repeat("word ", 100), strings.TrimSpace(strings.Repeat("word ", 49) + "word")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractAltText(tt.response)
			if got != tt.expected {
				t.Errorf("extractAltText() = %q, want %q", got, tt.expected)
			}
			if len(got) > MaxAltText {
				t.Errorf("alt text too long: %d", len(got))
			}
		})
	}
}

func TestNeedsDescription(t *testing.T) {
	tests := []struct {
		title    string
		alt      string
		expected bool
	}{
		{"Cat", "", true},
		{"Cat", "Cat image", true},
		{"Cat", "Upload by alice", true},
		{"Cat", "A grey cat on a sofa", false},
	}
	for _, tt := range tests {
		t.Run(tt.alt, func(t *testing.T) {
			if got := NeedsDescription(entry(t, "/cdn/cat.png", tt.title, tt.alt)); got != tt.expected {
				t.Errorf("NeedsDescription(%q) = %v, want %v", tt.alt, got, tt.expected)
			}
		})
	}
}

func TestDescribable(t *testing.T) {
	link, _ := models.NewEntry(models.OriginExternalLink, "https://example.com/a.png")
	tests := []struct {
		entry    models.Entry
		expected bool
	}{
		{entry(t, "/cdn/a.png", "", ""), true},
		{entry(t, "/cdn/a.gif", "", ""), true},
		{entry(t, "/cdn/a.svg", "", ""), false},
		{entry(t, "/cdn/a.mp4", "", ""), false},
		{link, false},
	}
	for _, tt := range tests {
		t.Run(tt.entry.Locator, func(t *testing.T) {
			if got := Describable(tt.entry); got != tt.expected {
				t.Errorf("Describable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDescribeAll(t *testing.T) {
	p := &fakeProvider{reply: `{"alt_text": "Generated"}`}
	svc := NewService(p, "test-model", fakeFetcher{missing: map[string]bool{"/cdn/gone.png": true}})

	entries := []models.Entry{
		entry(t, "/cdn/cat.png", "Cat", "Cat image"),
		entry(t, "/cdn/dog.png", "Dog", "A brown dog"),
		entry(t, "/cdn/gone.png", "Gone", ""),
		entry(t, "/cdn/clip.mp4", "Clip", ""),
	}
	out, n := svc.DescribeAll(context.Background(), entries)

	if n != 1 {
		t.Errorf("described = %d, want 1", n)
	}
	want := []string{"Generated", "A brown dog", "", ""}
	for i, e := range out {
		if e.AltText != want[i] {
			t.Errorf("entry %d alt = %q, want %q", i, e.AltText, want[i])
		}
	}
	if entries[0].AltText != "Cat image" {
		t.Error("input entries were modified")
	}
	if len(p.configs) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(p.configs))
	}
	cfg := p.configs[0]
	if cfg.Model != "test-model" || cfg.ImageFormat() != "png" || !strings.Contains(cfg.Prompt, `"Cat"`) {
		t.Errorf("unexpected provider config: %+v", cfg)
	}
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"ollama", "openai", "gemini"} {
		p, err := NewProvider(name)
		if err != nil {
			t.Fatalf("NewProvider(%q) failed: %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name() = %q, want %q", p.Name(), name)
		}
	}
	if _, err := NewProvider("claude"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
