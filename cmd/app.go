package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/config"
	"github.com/lehigh-university-libraries/gallery/internal/manifest"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/query"
	"github.com/lehigh-university-libraries/gallery/internal/sources"
	"github.com/lehigh-university-libraries/gallery/internal/storage"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
)

// app is the catalog pipeline shared by serve and browse.
type app struct {
	cfg      config.Config
	store    *catalog.Store
	events   chan catalog.Event
	manifest atomic.Pointer[manifest.Manifest]
	client   *storage.Client
	watcher  *uploads.Watcher
}

func newApp(cfg config.Config) *app {
	a := &app{
		cfg:    cfg,
		store:  catalog.NewStore(),
		events: make(chan catalog.Event, 16),
	}
	if cfg.Storage.URL != "" {
		a.client = storage.NewClient(cfg.Storage.URL, cfg.Storage.AnonKey, cfg.Storage.Bucket)
	}
	return a
}

// buildManifest scans the content root.
func buildManifest(cfg config.Config) (manifest.Manifest, error) {
	return manifest.NewBuilder(os.DirFS(cfg.ContentRoot), cfg.StaticPrefix).Build()
}

// loadManifest reads the configured manifest file, or scans the content root
// when there is none.
func loadManifest(cfg config.Config) (manifest.Manifest, error) {
	if cfg.Manifest != "" {
		if _, err := os.Stat(cfg.Manifest); err == nil {
			return manifest.Load(cfg.Manifest)
		}
		slog.Warn("Manifest file not found, scanning content root", "manifest", cfg.Manifest, "root", cfg.ContentRoot)
	}
	return buildManifest(cfg)
}

// publishManifest makes m the static source of the catalog.
func (a *app) publishManifest(m manifest.Manifest) error {
	static, err := m.StaticEntries()
	if err != nil {
		return fmt.Errorf("failed to read static entries: %w", err)
	}
	a.manifest.Store(&m)
	a.store.Apply(catalog.Event{Source: catalog.SourceStatic, Entries: static})
	slog.Info("Static manifest loaded", "static", len(m.Static), "documents", len(m.Documents))
	return nil
}

// rebuild rescans the content root after a change and saves the manifest
// file when one is configured.
func (a *app) rebuild() {
	m, err := buildManifest(a.cfg)
	if err != nil {
		slog.Error("Failed to rebuild manifest", "err", err)
		return
	}
	if a.cfg.Manifest != "" {
		if err := m.Save(a.cfg.Manifest); err != nil {
			slog.Error("Failed to save manifest", "path", a.cfg.Manifest, "err", err)
		}
	}
	if err := a.publishManifest(m); err != nil {
		slog.Error("Failed to publish manifest", "err", err)
	}
}

func (a *app) documents(ctx context.Context) ([]models.Entry, error) {
	m := a.manifest.Load()
	if m == nil {
		return nil, nil
	}
	return m.DocumentEntries()
}

func (a *app) newLoader() *sources.Loader {
	return sources.NewLoader(a.cfg.Tickets, a.documents, a.cfg.LinksURL, os.DirFS(a.cfg.ContentRoot))
}

// start loads the static manifest, applies events in the background and
// starts the upload watcher when a storage provider is configured.
func (a *app) start(ctx context.Context) error {
	m, err := loadManifest(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if err := a.publishManifest(m); err != nil {
		return err
	}

	go a.store.Run(ctx, a.events)

	if a.client == nil {
		slog.Warn("Storage provider not configured, user uploads disabled")
		return nil
	}
	a.watcher = uploads.New(uploads.FromClient(a.client), a.cfg.Storage.Bucket, a.cfg.Storage.Namespace, a.events)
	a.watcher.Start(ctx)
	return nil
}

func (a *app) stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}

// loading reports whether the first upload listing is still pending.
func (a *app) loading() bool {
	if a.watcher == nil {
		return false
	}
	return a.watcher.State().IsLoading
}

func requireStorage(cfg config.Config) (*storage.Client, error) {
	if cfg.Storage.URL == "" {
		return nil, fmt.Errorf("%w: set SUPABASE_URL and SUPABASE_ANON_KEY", storage.ErrNotConfigured)
	}
	return storage.NewClient(cfg.Storage.URL, cfg.Storage.AnonKey, cfg.Storage.Bucket), nil
}

func loadConfig(root *rootOptions) (config.Config, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// collect builds the catalog once without watching anything and returns the
// entries matching opts. Uploads are listed once when storage is configured.
func collect(ctx context.Context, cfg config.Config, opts query.Options) ([]models.Entry, error) {
	a := newApp(cfg)
	m, err := loadManifest(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	static, err := m.StaticEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to read static entries: %w", err)
	}
	a.manifest.Store(&m)

	state := catalog.Reduce(catalog.State{}, catalog.Event{Source: catalog.SourceStatic, Entries: static})

	if a.client != nil {
		p := uploads.FromClient(a.client)
		objects, err := p.ListTree(ctx, cfg.Storage.Namespace)
		if err != nil {
			slog.Warn("Failed to list user uploads", "namespace", cfg.Storage.Namespace, "err", err)
		} else {
			entries := uploads.ToEntries(objects, cfg.Storage.Namespace, p.PublicURL)
			state = catalog.Reduce(state, catalog.Event{Source: catalog.SourceUploads, Entries: entries})
		}
	}

	loader := a.newLoader()
	defer loader.Release()
	for _, ev := range loader.Activate(ctx, opts.Type) {
		state = catalog.Reduce(state, ev)
	}

	return query.Filter(state.Snapshot(opts.Type), opts), nil
}
