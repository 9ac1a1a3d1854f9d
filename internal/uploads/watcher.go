// Package uploads keeps the catalog's user upload source in sync with the
// object store.
package uploads

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/storage"
)

// Provider is the part of the object store the watcher needs
type Provider interface {
	ListTree(ctx context.Context, prefix string) ([]storage.Object, error)
	PublicURL(path string) string
	Subscribe(ctx context.Context, name string, filter storage.ChangeFilter, handler func(storage.Change)) (io.Closer, error)
}

type clientProvider struct {
	*storage.Client
}

func (p clientProvider) Subscribe(ctx context.Context, name string, filter storage.ChangeFilter, handler func(storage.Change)) (io.Closer, error) {
	ch, err := p.Client.Subscribe(ctx, name, filter, handler)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// FromClient adapts a storage client to Provider.
func FromClient(c *storage.Client) Provider {
	return clientProvider{c}
}

// State is what the watcher exposes to renderers
type State struct {
	Entries   []models.Entry
	IsLoading bool
}

// Watcher lists the upload namespace and re-lists it on every matching insert.
type Watcher struct {
	provider  Provider
	bucket    string
	namespace string
	events    chan<- catalog.Event

	mu      sync.RWMutex
	entries []models.Entry
	loading bool
	sub     io.Closer

	inflight sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a watcher. Each refresh is sent on events when it is non-nil.
func New(p Provider, bucket, namespace string, events chan<- catalog.Event) *Watcher {
	return &Watcher{
		provider:  p,
		bucket:    bucket,
		namespace: strings.Trim(namespace, "/"),
		events:    events,
		loading:   true,
		stopped:   make(chan struct{}),
	}
}

// Start kicks off the first listing and subscribes to the change feed.
// Failures are logged; the watcher then serves an empty upload set.
func (w *Watcher) Start(ctx context.Context) {
	detached := context.WithoutCancel(ctx)

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		w.Refresh(detached)
	}()

	sub, err := w.provider.Subscribe(ctx, "user-uploads", storage.ObjectInserts(w.bucket), func(c storage.Change) {
		w.onChange(detached, c)
	})
	if err != nil {
		slog.Error("Failed to subscribe to upload feed", "bucket", w.bucket, "err", err)
		return
	}

	w.mu.Lock()
	select {
	case <-w.stopped:
		w.mu.Unlock()
		sub.Close()
		return
	default:
	}
	w.sub = sub
	w.mu.Unlock()
}

// Relevant reports whether an inserted object name should trigger a re-list.
func (w *Watcher) Relevant(name string) bool {
	return strings.HasPrefix(name, w.namespace+"/") && Allowed(name)
}

func (w *Watcher) onChange(ctx context.Context, c storage.Change) {
	name := c.Field("name")
	if !w.Relevant(name) {
		return
	}
	slog.Debug("Upload inserted, refreshing", "name", name)

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		w.Refresh(ctx)
	}()
}

// Refresh re-lists the whole namespace and replaces the upload set. Concurrent
// refreshes race and the last to finish wins.
func (w *Watcher) Refresh(ctx context.Context) {
	objects, err := w.provider.ListTree(ctx, w.namespace)
	if err != nil {
		slog.Error("Error fetching user uploads", "namespace", w.namespace, "err", err)
		w.mu.Lock()
		w.loading = false
		w.mu.Unlock()
		return
	}

	entries := ToEntries(objects, w.namespace, w.provider.PublicURL)

	w.mu.Lock()
	w.entries = entries
	w.loading = false
	w.mu.Unlock()

	slog.Debug("User uploads refreshed", "count", len(entries))

	if w.events == nil {
		return
	}
	select {
	case w.events <- catalog.Event{Source: catalog.SourceUploads, Entries: entries}:
	case <-w.stopped:
	}
}

// State returns the current uploads and whether the first listing is pending.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	entries := make([]models.Entry, len(w.entries))
	copy(entries, w.entries)
	return State{Entries: entries, IsLoading: w.loading}
}

// Stop unsubscribes from the change feed. Listings already in flight still
// complete into the watcher's state but are no longer published.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.stopped)
		sub := w.sub
		w.sub = nil
		w.mu.Unlock()

		if sub != nil {
			if err := sub.Close(); err != nil {
				slog.Warn("Failed to close upload feed", "err", err)
			}
		}
	})
}

// Wait blocks until in-flight listings have finished.
func (w *Watcher) Wait() {
	w.inflight.Wait()
}

// OwnUploads lists the public URLs of one user's uploads, newest first.
func OwnUploads(ctx context.Context, p Provider, namespace, username string) ([]string, error) {
	prefix := strings.Trim(namespace, "/") + "/" + username
	objects, err := p.ListTree(ctx, prefix)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(objects))
	for _, obj := range objects {
		if Allowed(obj.Name) {
			urls = append(urls, p.PublicURL(prefix+"/"+obj.Name))
		}
	}
	return urls, nil
}
