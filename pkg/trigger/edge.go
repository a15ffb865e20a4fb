package trigger

import (
	"errors"
	"sync"
)

// ErrAlreadyObserved is returned by Observe when the sentinel already has a
// handler.
var ErrAlreadyObserved = errors.New("sentinel already observed")

// Sentinel identifies an observed marker.
type Sentinel string

// Handler is called when a sentinel becomes visible. It runs on the
// reporting goroutine and must not block.
type Handler func()

// Observer is the boundary sensor consumed by the paginated loader.
type Observer interface {
	// Observe starts watching the sentinel. If the sentinel is currently
	// visible the handler fires once right away.
	Observe(s Sentinel, h Handler) error

	// Unobserve stops watching the sentinel. Unknown sentinels are ignored.
	Unobserve(s Sentinel)
}

// Edge is a push-based Observer. The host reports the visibility of each
// sentinel; Edge turns those levels into edge-triggered handler calls.
type Edge struct {
	mu       sync.Mutex
	handlers map[Sentinel]Handler
	visible  map[Sentinel]bool
	fired    map[Sentinel]int
}

var _ Observer = (*Edge)(nil)

// NewEdge creates an Edge with no observed sentinels.
func NewEdge() *Edge {
	return &Edge{
		handlers: make(map[Sentinel]Handler),
		visible:  make(map[Sentinel]bool),
		fired:    make(map[Sentinel]int),
	}
}

// Observe implements Observer.
func (e *Edge) Observe(s Sentinel, h Handler) error {
	if h == nil {
		return errors.New("handler cannot be nil")
	}

	e.mu.Lock()
	if _, ok := e.handlers[s]; ok {
		e.mu.Unlock()
		return ErrAlreadyObserved
	}
	e.handlers[s] = h
	fire := e.visible[s]
	if fire {
		e.fired[s]++
	}
	e.mu.Unlock()

	if fire {
		h()
	}
	return nil
}

// Unobserve implements Observer.
func (e *Edge) Unobserve(s Sentinel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, s)
}

// Report records the current visibility of a sentinel and fires its handler
// on a hidden-to-visible transition. Reports for unobserved sentinels still
// update the recorded visibility.
func (e *Edge) Report(s Sentinel, visible bool) {
	e.mu.Lock()
	was := e.visible[s]
	e.visible[s] = visible
	h, observed := e.handlers[s]
	fire := observed && visible && !was
	if fire {
		e.fired[s]++
	}
	e.mu.Unlock()

	if fire {
		h()
	}
}

// Visible returns the last reported visibility of a sentinel.
func (e *Edge) Visible(s Sentinel) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible[s]
}

// Observed reports whether the sentinel currently has a handler.
func (e *Edge) Observed(s Sentinel) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.handlers[s]
	return ok
}

// Fired returns how many times the sentinel's handlers have been invoked.
func (e *Edge) Fired(s Sentinel) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fired[s]
}
