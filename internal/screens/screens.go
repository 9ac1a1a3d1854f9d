// Package screens keeps the per-viewer state of the catalog: the auxiliary
// source cache and the delivery controllers of the rendered list.
package screens

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/query"
	"github.com/lehigh-university-libraries/gallery/internal/sources"
)

// ErrClosed is returned by a screen that has been torn down.
var ErrClosed = errors.New("screen closed")

// Item is one rendered element
type Item struct {
	Entry    models.Entry    `json:"entry"`
	Type     models.FileType `json:"type"`
	Priority bool            `json:"priority"`
	State    string          `json:"state,omitempty"`
	Render   delivery.Render `json:"render"`
}

// View is the rendered catalog of a screen
type View struct {
	Entries   []Item          `json:"entries"`
	Filter    models.FileType `json:"filter"`
	Query     string          `json:"query"`
	IsLoading bool            `json:"isLoading"`
}

// Screen is one viewer of the catalog
type Screen struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`

	priorityCount int
	loader        *sources.Loader
	viewport      *delivery.Viewport
	board         *delivery.Board

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Layout sizes the delivery window of a screen. ViewportRows is the height
// assumed until the viewer reports its own.
type Layout struct {
	PriorityCount int
	ViewportRows  int
	Margin        int
}

func newScreen(loader *sources.Loader, layout Layout) *Screen {
	vp := delivery.NewViewport(layout.ViewportRows, layout.Margin)
	return &Screen{
		ID:            uuid.NewString(),
		Created:       time.Now(),
		priorityCount: layout.PriorityCount,
		loader:        loader,
		viewport:      vp,
		board:         delivery.NewBoard(layout.PriorityCount, vp),
	}
}

// Catalog activates the auxiliary sources the filter needs, merges them with
// the shared state and renders the filtered list.
func (s *Screen) Catalog(ctx context.Context, shared catalog.State, opts query.Options, isLoading bool) (View, error) {
	if s.isClosed() {
		return View{}, ErrClosed
	}

	s.loader.Activate(ctx, opts.Type)
	state := shared
	for _, ev := range s.loader.Cached() {
		state = catalog.Reduce(state, ev)
	}

	entries := query.Filter(state.Snapshot(opts.Type), opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrClosed
	}
	s.board.Render(entries)
	states := s.board.States()

	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{
			Entry:    e,
			Type:     catalog.Classify(e),
			Priority: i < s.priorityCount,
			Render:   delivery.RenderFor(e),
		}
		if st, ok := states[e.Locator]; ok {
			items[i].State = st.String()
		}
	}
	return View{Entries: items, Filter: opts.Type, Query: opts.Text, IsLoading: isLoading}, nil
}

// Scroll moves the screen's viewport and returns the locators that became
// requested.
func (s *Screen) Scroll(top, height int) ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	before := make(map[string]bool)
	for _, l := range s.board.Requested() {
		before[l] = true
	}

	if height > 0 {
		s.viewport.Resize(height)
	}
	s.viewport.Scroll(top)

	var flipped []string
	for _, l := range s.board.Requested() {
		if !before[l] {
			flipped = append(flipped, l)
		}
	}
	return flipped, nil
}

// Controller returns the delivery controller of a rendered element.
func (s *Screen) Controller(locator string) (*delivery.Controller, bool) {
	if s.isClosed() {
		return nil, false
	}
	return s.board.Controller(locator)
}

func (s *Screen) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the auxiliary cache and stops all observations. Only the
// first call has an effect.
func (s *Screen) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.board.Close()
		s.loader.Release()
	})
}

// Store holds the open screens by id
type Store struct {
	screens   map[string]*Screen
	mu        sync.RWMutex
	newLoader func() *sources.Loader
	layout    Layout
}

// New creates a store. Every screen gets its own loader from newLoader.
func New(newLoader func() *sources.Loader, layout Layout) *Store {
	return &Store{
		screens:   make(map[string]*Screen),
		newLoader: newLoader,
		layout:    layout,
	}
}

func (s *Store) Create() *Screen {
	screen := newScreen(s.newLoader(), s.layout)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[screen.ID] = screen
	return screen
}

func (s *Store) Get(id string) (*Screen, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	screen, exists := s.screens[id]
	return screen, exists
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.screens)
}

// Delete removes and tears down a screen. It reports false when the id is unknown.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	screen, exists := s.screens[id]
	delete(s.screens, id)
	s.mu.Unlock()

	if !exists {
		return false
	}
	screen.Close()
	return true
}

// CloseAll tears down every screen.
func (s *Store) CloseAll() {
	s.mu.Lock()
	screens := s.screens
	s.screens = make(map[string]*Screen)
	s.mu.Unlock()

	for _, screen := range screens {
		screen.Close()
	}
}
