// Package sources loads the auxiliary catalogs: HTML tickets, bundled PDF
// documents and the external links manifest.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/config"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"golang.org/x/sync/errgroup"
)

// Link is one record of links.json
type Link struct {
	Link string `json:"link"`
	Name string `json:"name"`
}

// DocumentFunc returns the bundled PDF entries
type DocumentFunc func(ctx context.Context) ([]models.Entry, error)

// Loader fetches auxiliary sources on demand and keeps them until the owner
// is torn down.
type Loader struct {
	tickets    []config.Ticket
	documents  DocumentFunc
	linksURL   string
	contentFS  fs.FS
	httpClient *http.Client

	mu    sync.Mutex
	cache map[catalog.Source][]models.Entry
}

// NewLoader creates a loader. contentFS resolves links locations that are not URLs.
func NewLoader(tickets []config.Ticket, documents DocumentFunc, linksURL string, contentFS fs.FS) *Loader {
	return &Loader{
		tickets:   tickets,
		documents: documents,
		linksURL:  linksURL,
		contentFS: contentFS,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: make(map[catalog.Source][]models.Entry),
	}
}

// Activate loads every auxiliary source the filter needs that is not cached
// yet and returns one event per newly loaded source. Failed sources are logged
// and retried on the next activation.
func (l *Loader) Activate(ctx context.Context, filter models.FileType) []catalog.Event {
	var pending []catalog.Source
	l.mu.Lock()
	for _, src := range []catalog.Source{catalog.SourceTickets, catalog.SourceDocuments, catalog.SourceLinks} {
		if _, ok := l.cache[src]; ok || !catalog.Active(src, filter) {
			continue
		}
		pending = append(pending, src)
	}
	l.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	results := make([][]models.Entry, len(pending))
	loaded := make([]bool, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range pending {
		g.Go(func() error {
			entries, err := l.load(gctx, src)
			if err != nil {
				slog.Error("Error loading auxiliary source", "source", src, "err", err)
				return nil
			}
			results[i] = entries
			loaded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var events []catalog.Event
	l.mu.Lock()
	for i, src := range pending {
		if !loaded[i] {
			continue
		}
		if _, ok := l.cache[src]; ok {
			continue
		}
		l.cache[src] = results[i]
		events = append(events, catalog.Event{Source: src, Entries: results[i]})
	}
	l.mu.Unlock()
	return events
}

// Cached returns the loaded auxiliary sources as events, in merge order.
func (l *Loader) Cached() []catalog.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []catalog.Event
	for _, src := range []catalog.Source{catalog.SourceTickets, catalog.SourceDocuments, catalog.SourceLinks} {
		if entries, ok := l.cache[src]; ok {
			events = append(events, catalog.Event{Source: src, Entries: entries})
		}
	}
	return events
}

// Release drops the cache.
func (l *Loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[catalog.Source][]models.Entry)
}

func (l *Loader) load(ctx context.Context, src catalog.Source) ([]models.Entry, error) {
	switch src {
	case catalog.SourceTickets:
		return Tickets(l.tickets)
	case catalog.SourceDocuments:
		if l.documents == nil {
			return nil, nil
		}
		return l.documents(ctx)
	case catalog.SourceLinks:
		links, err := l.fetchLinks(ctx)
		if err != nil {
			return nil, err
		}
		return LinkEntries(links), nil
	}
	return nil, fmt.Errorf("unknown auxiliary source %q", src)
}

// Tickets converts configured tickets into entries.
func Tickets(tickets []config.Ticket) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(tickets))
	for _, t := range tickets {
		e, err := models.NewEntry(models.OriginHTMLDocument, t.Locator)
		if err != nil {
			return nil, fmt.Errorf("invalid ticket %q: %w", t.Title, err)
		}
		e.Title = t.Title
		e.AltText = t.Alt
		e.Tags = t.Tags
		e.Dimensions = &models.Dimensions{Width: 800, Height: 600}
		entries = append(entries, e)
	}
	return entries, nil
}

// LinkEntries converts links.json records into entries, skipping blank links.
func LinkEntries(links []Link) []models.Entry {
	entries := make([]models.Entry, 0, len(links))
	for _, link := range links {
		e, err := models.NewEntry(models.OriginExternalLink, strings.TrimSpace(link.Link))
		if err != nil {
			slog.Warn("Skipping link without address", "name", link.Name)
			continue
		}
		e.Title = link.Name
		e.AltText = "Link to " + link.Name
		e.Tags = []string{"link", "external"}
		e.Dimensions = &models.Dimensions{Width: 400, Height: 200}
		entries = append(entries, e)
	}
	return entries
}

func (l *Loader) fetchLinks(ctx context.Context) ([]Link, error) {
	if l.linksURL == "" {
		return nil, nil
	}

	var body io.ReadCloser
	if strings.HasPrefix(l.linksURL, "http://") || strings.HasPrefix(l.linksURL, "https://") {
		req, err := http.NewRequestWithContext(ctx, "GET", l.linksURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create links request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch links: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("links manifest returned status %d", resp.StatusCode)
		}
		body = resp.Body
	} else {
		if l.contentFS == nil {
			return nil, fmt.Errorf("no content root to read %s from", l.linksURL)
		}
		f, err := l.contentFS.Open(strings.TrimPrefix(l.linksURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("failed to open links manifest: %w", err)
		}
		body = f
	}
	defer body.Close()

	var links []Link
	if err := json.NewDecoder(body).Decode(&links); err != nil {
		return nil, fmt.Errorf("failed to decode links manifest: %w", err)
	}
	return links, nil
}
