package pagination

import (
	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
)

// State is the load state of a Loader.
type State int

const (
	// StateIdle means no fetch is in flight and more items may exist.
	StateIdle State = iota

	// StateLoading means a fetch is in flight.
	StateLoading

	// StateExhausted means the catalog returned an empty page. Terminal.
	StateExhausted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome describes what a load call did.
type Outcome int

const (
	// OutcomeSkipped means no request was made (not idle, stale cursor,
	// deactivated, or initial load already done).
	OutcomeSkipped Outcome = iota

	// OutcomeAppended means a non-empty page was appended.
	OutcomeAppended

	// OutcomeExhausted means an empty page ended the list.
	OutcomeExhausted

	// OutcomeFailed means the request failed; the loader is idle again.
	OutcomeFailed

	// OutcomeDiscarded means the loader was deactivated while the request
	// was in flight; its result was dropped.
	OutcomeDiscarded
)

var outcomeNames = map[Outcome]string{
	OutcomeSkipped:   "skipped",
	OutcomeAppended:  "appended",
	OutcomeExhausted: "exhausted",
	OutcomeFailed:    "failed",
	OutcomeDiscarded: "discarded",
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Result reports the effect of a load call.
type Result struct {
	Outcome Outcome

	// Cursor is the offset that was requested.
	Cursor int

	// Received is the number of items in the fetched page.
	Received int
}

// Snapshot is an immutable view of a Loader's state.
type Snapshot struct {
	// Items in insertion order. The slice must not be modified.
	Items []catalog.Item

	// Cursor is the offset of the next page.
	Cursor int

	State State

	// LastError is the error of the most recent failed fetch, cleared by the
	// next successful one.
	LastError error

	// Pages counts non-empty pages appended so far.
	Pages int

	// Seq numbers transitions. A snapshot with a higher Seq is newer.
	Seq uint64
}

// listState is the loader-owned mutable state. It is only changed through
// the transitions below, always under Loader.mu.
type listState struct {
	items   []catalog.Item
	cursor  int
	state   State
	lastErr error
	pages   int
	seq     uint64
}

func (s *listState) begin() {
	s.state = StateLoading
	s.seq++
}

func (s *listState) appendPage(requested int, items []catalog.Item) {
	s.items = append(s.items, items...)
	s.cursor = requested + PageSize
	s.pages++
	s.lastErr = nil
	s.state = StateIdle
	s.seq++
}

func (s *listState) exhaust() {
	s.lastErr = nil
	s.state = StateExhausted
	s.seq++
}

func (s *listState) fail(err error) {
	s.lastErr = err
	s.state = StateIdle
	s.seq++
}

func (s *listState) snapshot() Snapshot {
	n := len(s.items)
	return Snapshot{
		Items:     s.items[:n:n],
		Cursor:    s.cursor,
		State:     s.state,
		LastError: s.lastErr,
		Pages:     s.pages,
		Seq:       s.seq,
	}
}
