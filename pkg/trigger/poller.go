package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is used when a Poller is created with a
// non-positive interval.
const DefaultPollInterval = 100 * time.Millisecond

// VisibilityFunc reports whether a sentinel is visible right now, e.g. by
// comparing a scroll position with the sentinel's offset.
type VisibilityFunc func() bool

// Poller is an Observer for hosts without visibility callbacks. It samples
// one check per sentinel on every tick and feeds the result to an Edge.
type Poller struct {
	edge     *Edge
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	checks map[Sentinel]VisibilityFunc
}

var _ Observer = (*Poller)(nil)

// NewPoller creates a poller sampling every interval.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		edge:     NewEdge(),
		interval: interval,
		logger:   log.With().Str("component", "visibility-poller").Logger(),
		checks:   make(map[Sentinel]VisibilityFunc),
	}
}

// SetCheck installs the visibility check for a sentinel.
func (p *Poller) SetCheck(s Sentinel, fn VisibilityFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn == nil {
		delete(p.checks, s)
		return
	}
	p.checks[s] = fn
}

// Observe implements Observer.
func (p *Poller) Observe(s Sentinel, h Handler) error {
	return p.edge.Observe(s, h)
}

// Unobserve implements Observer.
func (p *Poller) Unobserve(s Sentinel) {
	p.edge.Unobserve(s)
}

// Poll samples every check once.
func (p *Poller) Poll() {
	p.mu.Lock()
	checks := make(map[Sentinel]VisibilityFunc, len(p.checks))
	for s, fn := range p.checks {
		checks[s] = fn
	}
	p.mu.Unlock()

	for s, fn := range checks {
		p.edge.Report(s, fn())
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug().Dur("interval", p.interval).Msg("Visibility poller started")

	for {
		p.Poll()
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Visibility poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Edge exposes the underlying sensor.
func (p *Poller) Edge() *Edge {
	return p.edge
}
