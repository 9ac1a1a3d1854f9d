// Package delivery gates the network fetch of heavy media behind viewport
// proximity.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
)

var (
	// ErrNotRequested is returned when media is fetched before it came near the viewport.
	ErrNotRequested = errors.New("media not requested yet")
	// ErrUnavailable is returned for media that failed to load. It is terminal.
	ErrUnavailable = errors.New("media unavailable")
)

// State is the delivery state of one media element
type State int

const (
	StatePending State = iota
	StateRequested
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRequested:
		return "requested"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MediaFetcher downloads a media body
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*media.Payload, error)
}

// Controller tracks one media element from pending to loaded or errored.
type Controller struct {
	mu         sync.Mutex
	entry      models.Entry
	state      State
	disconnect func()
	err        error
}

// NewController starts an element. Priority elements start requested; others
// wait for the observer, or start requested when no observer is available.
func NewController(e models.Entry, index int, priority bool, obs Observer) *Controller {
	c := &Controller{entry: e}
	if priority {
		c.state = StateRequested
		return c
	}
	c.observe(index, obs)
	return c
}

func (c *Controller) observe(index int, obs Observer) {
	if obs == nil {
		c.mu.Lock()
		if c.state == StatePending {
			c.state = StateRequested
		}
		c.mu.Unlock()
		return
	}
	disconnect, err := obs.Observe(index, c.request)
	if err != nil || disconnect == nil {
		c.mu.Lock()
		if c.state == StatePending {
			c.state = StateRequested
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.state != StatePending {
		c.mu.Unlock()
		disconnect()
		return
	}
	c.disconnect = disconnect
	c.mu.Unlock()
}

// request flips pending to requested once and stops observing.
func (c *Controller) request() {
	c.mu.Lock()
	if c.state != StatePending {
		c.mu.Unlock()
		return
	}
	c.state = StateRequested
	disconnect := c.disconnect
	c.disconnect = nil
	c.mu.Unlock()

	if disconnect != nil {
		disconnect()
	}
}

// Reposition is called when the element is rendered again at a new index.
// Only pending elements are affected.
func (c *Controller) Reposition(index int, priority bool, obs Observer) {
	c.mu.Lock()
	if c.state != StatePending {
		c.mu.Unlock()
		return
	}
	disconnect := c.disconnect
	c.disconnect = nil
	if priority {
		c.state = StateRequested
	}
	c.mu.Unlock()

	if disconnect != nil {
		disconnect()
	}
	if !priority {
		c.observe(index, obs)
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Entry() models.Entry {
	return c.entry
}

// Err is the load failure of an errored element.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// MarkLoaded records a successful load.
func (c *Controller) MarkLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRequested {
		c.state = StateLoaded
	}
}

// MarkFailed records a load or decode failure of a requested element. Loaded
// and errored are terminal.
func (c *Controller) MarkFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRequested {
		c.state = StateErrored
		c.err = err
	}
}

// Deliver fetches the element's media when it has been requested. A failed
// first load moves the element to errored and is never retried. Refetching a
// loaded element returns the error and leaves the element loaded.
func (c *Controller) Deliver(ctx context.Context, f MediaFetcher, url string) (*media.Payload, error) {
	state := c.State()
	switch state {
	case StatePending:
		return nil, ErrNotRequested
	case StateErrored:
		return nil, ErrUnavailable
	}

	payload, err := f.Fetch(ctx, url)
	if err != nil {
		if state == StateLoaded {
			return nil, fmt.Errorf("failed to fetch media: %w", err)
		}
		c.MarkFailed(err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.MarkLoaded()
	return payload, nil
}

// Fallback is the text shown in place of media that could not be loaded.
func (c *Controller) Fallback() string {
	label := "Image unavailable"
	if catalog.Classify(c.entry) == models.TypeVideos {
		label = "Video unavailable"
	}
	return label + "\n" + c.entry.Filename()
}

// Close stops observing a pending element.
func (c *Controller) Close() {
	c.mu.Lock()
	disconnect := c.disconnect
	c.disconnect = nil
	c.mu.Unlock()
	if disconnect != nil {
		disconnect()
	}
}
