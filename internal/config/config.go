package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Ticket is a statically configured HTML ticket
type Ticket struct {
	Locator string   `yaml:"locator" toml:"locator"`
	Title   string   `yaml:"title" toml:"title"`
	Alt     string   `yaml:"alt" toml:"alt"`
	Tags    []string `yaml:"tags" toml:"tags"`
}

// Storage describes the object store holding user uploads
type Storage struct {
	URL            string `yaml:"url" toml:"url"`
	AnonKey        string `yaml:"anon_key" toml:"anon_key"`
	Bucket         string `yaml:"bucket" toml:"bucket"`
	Namespace      string `yaml:"namespace" toml:"namespace"`
	ReviewFunction string `yaml:"review_function" toml:"review_function"`
}

// Config is the gallery configuration
type Config struct {
	ContentRoot   string   `yaml:"content_root" toml:"content_root"`
	StaticPrefix  string   `yaml:"static_prefix" toml:"static_prefix"`
	Manifest      string   `yaml:"manifest" toml:"manifest"`
	PublicOrigin  string   `yaml:"public_origin" toml:"public_origin"`
	LinksURL      string   `yaml:"links_url" toml:"links_url"`
	Tickets       []Ticket `yaml:"tickets" toml:"tickets"`
	PriorityCount int      `yaml:"priority_count" toml:"priority_count"`
	ViewportRows  int      `yaml:"viewport_rows" toml:"viewport_rows"`
	Margin        int      `yaml:"margin" toml:"margin"`
	Storage       Storage  `yaml:"storage" toml:"storage"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ContentRoot:   "public",
		StaticPrefix:  "cdn",
		PublicOrigin:  "http://localhost:8888",
		LinksURL:      "/links.json",
		PriorityCount: 6,
		ViewportRows:  12,
		Margin:        2,
		Tickets: []Ticket{
			{
				Locator: "/qs-5db.html",
				Title:   "QS-5DB Ticket",
				Alt:     "QS-5DB HTML ticket viewer",
				Tags:    []string{"ticket", "html", "qs-5db"},
			},
			{
				Locator: "/qs-warden.html",
				Title:   "QS-Warden Ticket",
				Alt:     "QS-Warden HTML ticket viewer",
				Tags:    []string{"ticket", "html", "qs-warden"},
			},
		},
		Storage: Storage{
			Bucket:         "public",
			Namespace:      "users",
			ReviewFunction: "submit-upload-review",
		},
	}
}

// Load reads the config file at path (if any) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
			}
		default:
			return cfg, fmt.Errorf("unsupported config format: %s (supported: .yaml, .yml, .toml)", ext)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.URL, "SUPABASE_URL")
	set(&cfg.Storage.AnonKey, "SUPABASE_ANON_KEY")
	set(&cfg.Storage.Bucket, "GALLERY_BUCKET")
	set(&cfg.Storage.Namespace, "GALLERY_NAMESPACE")
	set(&cfg.ContentRoot, "GALLERY_CONTENT_ROOT")
	set(&cfg.LinksURL, "GALLERY_LINKS_URL")
	set(&cfg.PublicOrigin, "GALLERY_PUBLIC_ORIGIN")
	set(&cfg.Manifest, "GALLERY_MANIFEST")

	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setInt(&cfg.PriorityCount, "GALLERY_PRIORITY_COUNT")
	setInt(&cfg.ViewportRows, "GALLERY_VIEWPORT_ROWS")
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c Config) Validate() error {
	if c.PriorityCount < 0 {
		return fmt.Errorf("priority_count must not be negative")
	}
	if c.ViewportRows < 1 {
		return fmt.Errorf("viewport_rows must be at least 1")
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative")
	}
	if c.Storage.Namespace == "" || strings.Contains(c.Storage.Namespace, "/") {
		return fmt.Errorf("storage namespace must be a single path segment, got %q", c.Storage.Namespace)
	}
	return nil
}

// AbsoluteURL resolves a locator against the public origin. Locators that are
// already URLs are returned unchanged.
func (c Config) AbsoluteURL(locator string) string {
	if strings.HasPrefix(locator, "http") {
		return locator
	}
	return strings.TrimSuffix(c.PublicOrigin, "/") + locator
}
