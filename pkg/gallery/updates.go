package gallery

import (
	"context"
	"sync"

	"github.com/Sternrassler/catalog-scroll/pkg/pagination"
	tea "github.com/charmbracelet/bubbletea"
)

// Updates carries loader snapshots to the program. Only the most recent
// undelivered snapshot is kept, so Publish never blocks the loader.
type Updates struct {
	mu   sync.Mutex
	ch   chan pagination.Snapshot
	last uint64
}

// NewUpdates creates an empty update channel.
func NewUpdates() *Updates {
	return &Updates{ch: make(chan pagination.Snapshot, 1)}
}

// Publish replaces any pending snapshot with s. Snapshots older than the
// last one published are dropped. Use it as the loader's OnChange callback.
func (u *Updates) Publish(s pagination.Snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if s.Seq < u.last {
		return
	}
	u.last = s.Seq

	select {
	case <-u.ch:
	default:
	}
	u.ch <- s
}

type snapshotMsg pagination.Snapshot

// wait returns a command that delivers the next snapshot.
func (u *Updates) wait(ctx context.Context) tea.Cmd {
	if u == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-u.ch:
			return snapshotMsg(s)
		case <-ctx.Done():
			return nil
		}
	}
}
