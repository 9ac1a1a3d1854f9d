package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PriorityCount != 6 {
		t.Errorf("Expected priority count 6, got %d", cfg.PriorityCount)
	}
	if cfg.ViewportRows != 12 {
		t.Errorf("Expected 12 viewport rows, got %d", cfg.ViewportRows)
	}
	if cfg.Storage.Namespace != "users" || cfg.Storage.Bucket != "public" {
		t.Errorf("Unexpected storage defaults: %+v", cfg.Storage)
	}
	if len(cfg.Tickets) != 2 {
		t.Errorf("Expected 2 default tickets, got %d", len(cfg.Tickets))
	}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "gallery.yaml",
			content: `content_root: site
storage:
  url: https://store.example
  namespace: members
`,
		},
		{
			name: "toml",
			file: "gallery.toml",
			content: `content_root = "site"
[storage]
url = "https://store.example"
namespace = "members"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("SUPABASE_URL", "")
			t.Setenv("GALLERY_NAMESPACE", "")
			t.Setenv("GALLERY_CONTENT_ROOT", "")

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.ContentRoot != "site" || cfg.Storage.URL != "https://store.example" || cfg.Storage.Namespace != "members" {
				t.Errorf("Unexpected config: %+v", cfg)
			}
			if cfg.Storage.Bucket != "public" {
				t.Errorf("Expected default bucket to survive, got %q", cfg.Storage.Bucket)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.example")
	t.Setenv("GALLERY_NAMESPACE", "people")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.URL != "https://env.example" || cfg.Storage.Namespace != "people" {
		t.Errorf("Env overrides not applied: %+v", cfg.Storage)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for .ini config")
	}
}

func TestAbsoluteURL(t *testing.T) {
	cfg := Default()
	cfg.PublicOrigin = "https://cdn.example/"
	if got := cfg.AbsoluteURL("/cdn/a.png"); got != "https://cdn.example/cdn/a.png" {
		t.Errorf("Unexpected URL %s", got)
	}
	if got := cfg.AbsoluteURL("https://store/x.gif"); got != "https://store/x.gif" {
		t.Errorf("Unexpected URL %s", got)
	}
}

func TestViewportRowsIndependentOfPriority(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("GALLERY_PRIORITY_COUNT", "3")
	t.Setenv("GALLERY_VIEWPORT_ROWS", "20")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PriorityCount != 3 || cfg.ViewportRows != 20 {
		t.Errorf("Expected priority 3 and 20 viewport rows, got %d and %d", cfg.PriorityCount, cfg.ViewportRows)
	}

	cfg.ViewportRows = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected zero viewport rows to be rejected")
	}
}
