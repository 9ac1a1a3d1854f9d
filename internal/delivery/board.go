package delivery

import (
	"sync"

	"github.com/lehigh-university-libraries/gallery/internal/models"
)

// Render is how an entry is presented
type Render string

const (
	RenderImage        Render = "image"
	RenderVideo        Render = "video"
	RenderTicket       Render = "ticket"
	RenderDocument     Render = "document"
	RenderLink         Render = "link"
	RenderDownloadOnly Render = "download-only"
)

// Lazy reports whether the presentation fetches a heavy media payload.
func (r Render) Lazy() bool {
	return r == RenderImage || r == RenderVideo
}

// RenderFor picks the presentation of an entry from its origin and extension.
func RenderFor(e models.Entry) Render {
	switch e.Origin() {
	case models.OriginExternalLink:
		return RenderLink
	case models.OriginHTMLDocument:
		return RenderTicket
	case models.OriginPDFDocument:
		return RenderDocument
	}
	switch models.Extension(e.Locator) {
	case "png", "jpg", "jpeg", "svg", "gif":
		return RenderImage
	case "mp4", "mov", "avi", "webm", "mkv":
		return RenderVideo
	case "html", "htm":
		return RenderTicket
	case "pdf":
		return RenderDocument
	}
	return RenderDownloadOnly
}

// Board holds the controllers of one rendered list, keyed by locator, so an
// element keeps its state across re-renders.
type Board struct {
	mu            sync.Mutex
	priorityCount int
	observer      Observer
	controllers   map[string]*Controller
	order         []string
}

// NewBoard creates an empty board. The first priorityCount rendered entries load eagerly.
func NewBoard(priorityCount int, obs Observer) *Board {
	return &Board{
		priorityCount: priorityCount,
		observer:      obs,
		controllers:   make(map[string]*Controller),
	}
}

// Render lays out entries in order. Controllers of locators that are no longer
// rendered are closed and dropped.
func (b *Board) Render(entries []models.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keep := make(map[string]bool, len(entries))
	order := make([]string, 0, len(entries))
	for i, e := range entries {
		priority := i < b.priorityCount
		if !RenderFor(e).Lazy() {
			continue
		}
		if keep[e.Locator] {
			continue
		}
		keep[e.Locator] = true
		order = append(order, e.Locator)

		if c, ok := b.controllers[e.Locator]; ok {
			c.Reposition(i, priority, b.observer)
			continue
		}
		b.controllers[e.Locator] = NewController(e, i, priority, b.observer)
	}

	for locator, c := range b.controllers {
		if !keep[locator] {
			c.Close()
			delete(b.controllers, locator)
		}
	}
	b.order = order
}

func (b *Board) Controller(locator string) (*Controller, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.controllers[locator]
	return c, ok
}

// States returns the state of every lazily delivered element.
func (b *Board) States() map[string]State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]State, len(b.controllers))
	for locator, c := range b.controllers {
		out[locator] = c.State()
	}
	return out
}

// Requested lists the rendered locators whose media may be fetched, in render order.
func (b *Board) Requested() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, locator := range b.order {
		if b.controllers[locator].State() == StateRequested {
			out = append(out, locator)
		}
	}
	return out
}

// Close stops all observations.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.controllers {
		c.Close()
	}
	b.controllers = make(map[string]*Controller)
	b.order = nil
}
