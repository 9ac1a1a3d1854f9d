package delivery

import (
	"errors"
	"sync"
)

// ErrObserverUnavailable is returned by observers that cannot watch elements.
var ErrObserverUnavailable = errors.New("proximity observer unavailable")

// Observer watches an element position and calls onNear the first time it
// comes within the observer's margin of the viewport.
type Observer interface {
	Observe(index int, onNear func()) (disconnect func(), err error)
}

type observation struct {
	index  int
	onNear func()
	active bool
}

// Viewport is a row-based proximity observer. Rows in [top-margin, top+height+margin)
// count as near.
type Viewport struct {
	mu      sync.Mutex
	top     int
	height  int
	margin  int
	nextID  int
	watched map[int]*observation
}

func NewViewport(height, margin int) *Viewport {
	return &Viewport{
		height:  height,
		margin:  margin,
		watched: make(map[int]*observation),
	}
}

func (v *Viewport) near(index int) bool {
	return index >= v.top-v.margin && index < v.top+v.height+v.margin
}

// Observe registers a row. A row that is already near fires right away.
func (v *Viewport) Observe(index int, onNear func()) (func(), error) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	obs := &observation{index: index, onNear: onNear, active: true}
	v.watched[id] = obs
	fire := v.near(index)
	if fire {
		delete(v.watched, id)
	}
	v.mu.Unlock()

	if fire {
		onNear()
	}
	return func() {
		v.mu.Lock()
		delete(v.watched, id)
		v.mu.Unlock()
	}, nil
}

// Scroll moves the viewport and fires every watched row that became near.
func (v *Viewport) Scroll(top int) int {
	v.mu.Lock()
	v.top = top
	fired := v.collect()
	v.mu.Unlock()
	return fire(fired)
}

// Resize changes the visible height and fires rows that became near.
func (v *Viewport) Resize(height int) int {
	v.mu.Lock()
	v.height = height
	fired := v.collect()
	v.mu.Unlock()
	return fire(fired)
}

// Window returns the current top and height.
func (v *Viewport) Window() (top, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top, v.height
}

// Watching returns how many rows are still observed.
func (v *Viewport) Watching() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watched)
}

func (v *Viewport) collect() []func() {
	var fired []func()
	for id, obs := range v.watched {
		if v.near(obs.index) {
			fired = append(fired, obs.onNear)
			delete(v.watched, id)
		}
	}
	return fired
}

func fire(fns []func()) int {
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Unavailable is an Observer for environments with no proximity detection.
type Unavailable struct{}

func (Unavailable) Observe(int, func()) (func(), error) {
	return nil, ErrObserverUnavailable
}
