package media

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestResolverLocal(t *testing.T) {
	content := fstest.MapFS{
		"cdn/a.png":     {Data: []byte("\x89PNG\r\n\x1a\nxxxx")},
		"cdn/empty.gif": {Data: nil},
	}
	r := NewResolver(content, NewFetcher())

	p, err := r.Fetch(context.Background(), "/cdn/a.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if p.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", p.ContentType)
	}

	info, err := r.Head(context.Background(), "/cdn/a.png")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != 12 {
		t.Errorf("Size = %d, want 12", info.Size)
	}

	tests := []string{"/cdn/missing.png", "/cdn/empty.gif", "/../../etc/passwd"}
	for _, locator := range tests {
		t.Run(locator, func(t *testing.T) {
			if _, err := r.Fetch(context.Background(), locator); err == nil {
				t.Errorf("expected error for %s", locator)
			}
		})
	}
}

func TestResolverWithoutContent(t *testing.T) {
	r := NewResolver(nil, NewFetcher())
	if _, err := r.Head(context.Background(), "/cdn/a.png"); err == nil {
		t.Error("expected error without content root")
	}
}
