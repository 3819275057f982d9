package lifecycle

import (
	"time"

	"github.com/bft-labs/rigging/pkg/container"
)

// EventKind classifies machine notifications.
type EventKind int

const (
	// EventTransition fires on every successful transition.
	EventTransition EventKind = iota

	// EventCreate, EventStart, EventStop, EventDestroy fire on the
	// corresponding successful transition, after EventTransition.
	EventCreate
	EventStart
	EventStop
	EventDestroy

	// EventError fires when a transition fails (illegal transition, hook
	// error, or hook timeout). State is unchanged.
	EventError
)

// Event describes one machine notification. Events are delivered
// synchronously on the transitioning goroutine.
type Event struct {
	Kind     EventKind
	Token    *container.Token
	From     State
	To       State
	Hook     Hook
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Listener receives machine events.
type Listener func(Event)

// subscriptions is an ordered set of listeners per event kind.
type subscriptions struct {
	next int
	subs map[EventKind]map[int]Listener
	all  map[int]Listener
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		subs: make(map[EventKind]map[int]Listener),
		all:  make(map[int]Listener),
	}
}

// add registers a listener for one kind and returns an unsubscribe func.
func (s *subscriptions) add(kind EventKind, fn Listener) func() {
	id := s.next
	s.next++
	if s.subs[kind] == nil {
		s.subs[kind] = make(map[int]Listener)
	}
	s.subs[kind][id] = fn
	return func() {
		delete(s.subs[kind], id)
	}
}

// addAll registers a listener for every kind.
func (s *subscriptions) addAll(fn Listener) func() {
	id := s.next
	s.next++
	s.all[id] = fn
	return func() {
		delete(s.all, id)
	}
}

// snapshot copies the listeners for a kind so notification can run without
// holding the machine lock.
func (s *subscriptions) snapshot(kind EventKind) []Listener {
	out := make([]Listener, 0, len(s.subs[kind])+len(s.all))
	for _, fn := range s.subs[kind] {
		out = append(out, fn)
	}
	for _, fn := range s.all {
		out = append(out, fn)
	}
	return out
}
