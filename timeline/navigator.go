package timeline

import (
	"slices"
	"sync"
)

// State is a snapshot of the navigation state.
//
// Cursor always satisfies 0 <= Cursor < len(Events) when Events is non-empty, and is 0 otherwise.
// Loading is true from the start of an extraction until its events are loaded.
type State struct {
	Events     []Event
	Cursor     int
	FilterMode bool
	Loading    bool
}

// CurrentEvent returns the event under the cursor.
func (s State) CurrentEvent() (Event, bool) {
	if len(s.Events) == 0 {
		return Event{}, false
	}

	return s.Events[s.Cursor], true
}

// VisibleEvents returns all events, or only those up to and including the cursor in filter mode.
// The prefix is capped so that appending to it never writes into the remaining events.
func (s State) VisibleEvents() []Event {
	if !s.FilterMode || len(s.Events) == 0 {
		return s.Events
	}

	return s.Events[:s.Cursor+1 : s.Cursor+1]
}

type subscription struct {
	id       uint64
	observer func(State)
}

// Navigator holds the current position within a list of events.
// All methods are safe for concurrent use. Observers are called after every change, outside the lock.
type Navigator struct {
	mu          sync.Mutex
	state       State
	nextSubID   uint64
	subscribers []subscription
}

// NewNavigator returns a Navigator without events that is loading.
func NewNavigator() *Navigator {
	return &Navigator{state: State{Loading: true}}
}

// Load replaces the events, resets the cursor to the first one and clears the loading flag.
// The filter mode is kept.
func (n *Navigator) Load(events []Event) {
	n.update(func(s *State) bool {
		s.Events = slices.Clip(slices.Clone(events))
		s.Cursor = 0
		s.Loading = false

		return true
	})
}

// Next advances the cursor by one. It does nothing at the last event.
func (n *Navigator) Next() {
	n.update(func(s *State) bool {
		if s.Cursor >= len(s.Events)-1 {
			return false
		}

		s.Cursor++

		return true
	})
}

// Previous moves the cursor back by one. It does nothing at the first event.
func (n *Navigator) Previous() {
	n.update(func(s *State) bool {
		if s.Cursor <= 0 {
			return false
		}

		s.Cursor--

		return true
	})
}

// Goto moves the cursor to index i.
func (n *Navigator) Goto(i int) error {
	var err error

	n.update(func(s *State) bool {
		if i < 0 || i >= len(s.Events) {
			err = ErrEventIndexOutOfRange
			return false
		}

		changed := s.Cursor != i
		s.Cursor = i

		return changed
	})

	return err
}

// GotoObjectID moves the cursor to the first event carrying the given object id.
func (n *Navigator) GotoObjectID(objectID any) error {
	var err error

	n.update(func(s *State) bool {
		i := slices.IndexFunc(s.Events, func(e Event) bool {
			return sameObjectID(e.ObjectID, objectID)
		})

		if i < 0 {
			err = ErrEventNotFound
			return false
		}

		changed := s.Cursor != i
		s.Cursor = i

		return changed
	})

	return err
}

// SetFilterMode switches filter mode. The cursor does not move.
func (n *Navigator) SetFilterMode(enabled bool) {
	n.update(func(s *State) bool {
		changed := s.FilterMode != enabled
		s.FilterMode = enabled

		return changed
	})
}

// ToggleFilterMode flips filter mode and returns the new value.
func (n *Navigator) ToggleFilterMode() bool {
	var enabled bool

	n.update(func(s *State) bool {
		s.FilterMode = !s.FilterMode
		enabled = s.FilterMode

		return true
	})

	return enabled
}

// SetLoading sets the loading flag.
func (n *Navigator) SetLoading(loading bool) {
	n.update(func(s *State) bool {
		changed := s.Loading != loading
		s.Loading = loading

		return changed
	})
}

// Loading reports whether an extraction is in progress.
func (n *Navigator) Loading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state.Loading
}

// FilterMode reports whether only the events up to the cursor are visible.
func (n *Navigator) FilterMode() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state.FilterMode
}

// Cursor returns the index of the current event, 0 when there are none.
func (n *Navigator) Cursor() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state.Cursor
}

// Events returns a copy of the loaded events.
func (n *Navigator) Events() []Event {
	return n.State().Events
}

// CurrentEvent returns the event under the cursor, false when there are no events.
func (n *Navigator) CurrentEvent() (Event, bool) {
	return n.State().CurrentEvent()
}

// VisibleEvents returns the events a map should show.
func (n *Navigator) VisibleEvents() []Event {
	return n.State().VisibleEvents()
}

// State returns a snapshot. Its event slice is a copy owned by the caller.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.snapshot()
}

func (n *Navigator) snapshot() State {
	s := n.state
	s.Events = slices.Clone(n.state.Events)

	return s
}

// Subscribe registers an observer for state changes and returns a function that removes it.
func (n *Navigator) Subscribe(observer func(State)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextSubID++
	id := n.nextSubID
	n.subscribers = append(n.subscribers, subscription{id: id, observer: observer})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		n.subscribers = slices.DeleteFunc(n.subscribers, func(s subscription) bool {
			return s.id == id
		})
	}
}

// update applies mutate under the lock and notifies the observers if it reports a change.
func (n *Navigator) update(mutate func(s *State) bool) {
	n.mu.Lock()

	if !mutate(&n.state) {
		n.mu.Unlock()
		return
	}

	snapshot := n.snapshot()
	observers := make([]func(State), 0, len(n.subscribers))
	for _, sub := range n.subscribers {
		observers = append(observers, sub.observer)
	}

	n.mu.Unlock()

	for _, observer := range observers {
		observer(snapshot)
	}
}

// sameObjectID compares object ids that may have been decoded into different numeric types.
func sameObjectID(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
	}

	return scalarToString(a) == scalarToString(b)
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
