package catalog

import (
	"context"
	"sync"

	"github.com/lehigh-university-libraries/gallery/internal/models"
)

// Event announces that a source produced a new full collection
type Event struct {
	Source  Source
	Entries []models.Entry
}

// State holds the latest collection of every source. It is never mutated;
// Reduce returns a new State.
type State struct {
	inputs Inputs
	loaded map[Source]bool
}

// Reduce applies an event, replacing the named source wholesale.
func Reduce(s State, ev Event) State {
	entries := make([]models.Entry, len(ev.Entries))
	copy(entries, ev.Entries)

	loaded := make(map[Source]bool, len(s.loaded)+1)
	for k, v := range s.loaded {
		loaded[k] = v
	}
	loaded[ev.Source] = true

	return State{inputs: s.inputs.with(ev.Source, entries), loaded: loaded}
}

// Loaded reports whether the source has delivered at least once.
func (s State) Loaded(src Source) bool {
	return s.loaded[src]
}

func (s State) Inputs() Inputs {
	return s.inputs
}

func (s State) Snapshot(filter models.FileType) Snapshot {
	return Merge(s.inputs, filter)
}

// Store holds the shared State and applies events from producers.
type Store struct {
	mu    sync.RWMutex
	state State
	subs  []chan struct{}
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply reduces the event into the shared state and wakes subscribers.
func (s *Store) Apply(ev Event) State {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	state := s.state
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return state
}

// Changes returns a channel that receives a signal after every applied event.
// Signals coalesce when the receiver is slow.
func (s *Store) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Run applies events until the channel closes or ctx is done.
func (s *Store) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.Apply(ev)
		}
	}
}
