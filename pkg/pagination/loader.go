package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
	"github.com/Sternrassler/catalog-scroll/pkg/trigger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PageSize is the number of items requested per page.
const PageSize = 10

// Prometheus metrics for the paginated loader.
var (
	loaderLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loader_loads_total",
		Help: "Total load calls by outcome",
	}, []string{"outcome"})

	loaderItemsAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_loader_items_appended_total",
		Help: "Total items appended to item lists",
	})

	loaderFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loader_fetch_errors_total",
		Help: "Total failed page fetches by error class",
	}, []string{"class"})

	loaderFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_loader_fetch_duration_seconds",
		Help:    "Page fetch duration as seen by the loader",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

var (
	// ErrStaleCursor is returned when a load is requested at an offset other
	// than the loader's current cursor.
	ErrStaleCursor = errors.New("stale cursor")

	// ErrDeactivated is returned by loads and activation after Deactivate.
	ErrDeactivated = errors.New("loader deactivated")

	// ErrAlreadyActive is returned by a second Activate.
	ErrAlreadyActive = errors.New("loader already active")
)

// PageFetcher fetches one page of the catalog. *catalog.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, skip, limit int) (*catalog.Page, error)
}

// Config holds loader configuration.
type Config struct {
	// OnChange is called after every state transition with the new
	// snapshot. It runs on the goroutine that performed the transition and
	// must not block. Calls from concurrent loads may arrive out of order;
	// Snapshot.Seq tells which one is newer.
	OnChange func(Snapshot)
}

// Loader incrementally fetches catalog pages into an in-memory list.
type Loader struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
	id      string

	mu          sync.Mutex
	list        listState
	initialized bool
	active      bool
	deactivated bool
	observer    trigger.Observer
	sentinel    trigger.Sentinel
	ctx         context.Context

	background sync.WaitGroup
}

// NewLoader creates an idle loader with an empty list.
func NewLoader(fetcher PageFetcher, cfg Config) *Loader {
	if fetcher == nil {
		panic("page fetcher cannot be nil")
	}

	id := uuid.NewString()
	return &Loader{
		fetcher: fetcher,
		config:  cfg,
		id:      id,
		logger: log.With().
			Str("component", "loader").
			Str("session_id", id).
			Logger(),
	}
}

// ID returns the loader's session id.
func (l *Loader) ID() string {
	return l.id
}

// Snapshot returns the current state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.snapshot()
}

func (l *Loader) notify(s Snapshot) {
	if l.config.OnChange != nil {
		l.config.OnChange(s)
	}
}

func (l *Loader) skip(cursor int, reason string) Result {
	loaderLoadsTotal.WithLabelValues(OutcomeSkipped.String()).Inc()
	l.logger.Debug().Int("cursor", cursor).Str("reason", reason).Msg("Load skipped")
	return Result{Outcome: OutcomeSkipped, Cursor: cursor}
}

// LoadPage requests the page at cursor. It is a no-op unless the loader is
// idle, and cursor must equal the loader's current cursor. Fetch failures
// are logged and recorded in the snapshot, leave list and cursor unchanged,
// and are returned.
func (l *Loader) LoadPage(ctx context.Context, cursor int) (Result, error) {
	l.mu.Lock()
	switch {
	case l.deactivated:
		l.mu.Unlock()
		return l.skip(cursor, "deactivated"), ErrDeactivated
	case l.list.state != StateIdle:
		state := l.list.state
		l.mu.Unlock()
		return l.skip(cursor, state.String()), nil
	case cursor != l.list.cursor:
		current := l.list.cursor
		l.mu.Unlock()
		return l.skip(cursor, "stale cursor"),
			fmt.Errorf("%w: requested %d, loader at %d", ErrStaleCursor, cursor, current)
	}
	l.list.begin()
	snap := l.list.snapshot()
	l.mu.Unlock()
	l.notify(snap)

	l.logger.Debug().Int("cursor", cursor).Int("limit", PageSize).Msg("Fetching page")

	start := time.Now()
	page, err := l.fetcher.FetchPage(ctx, cursor, PageSize)
	loaderFetchDuration.Observe(time.Since(start).Seconds())

	l.mu.Lock()
	if l.deactivated {
		l.mu.Unlock()
		loaderLoadsTotal.WithLabelValues(OutcomeDiscarded.String()).Inc()
		l.logger.Debug().Int("cursor", cursor).Msg("Discarding page fetched after deactivation")
		return Result{Outcome: OutcomeDiscarded, Cursor: cursor}, nil
	}

	if err != nil {
		l.list.fail(err)
		snap = l.list.snapshot()
		l.mu.Unlock()

		class := catalog.Class(err)
		if class == "" {
			class = "unknown"
		}
		loaderFetchErrorsTotal.WithLabelValues(string(class)).Inc()
		loaderLoadsTotal.WithLabelValues(OutcomeFailed.String()).Inc()
		l.logger.Error().
			Err(err).
			Int("cursor", cursor).
			Str("error_class", string(class)).
			Msg("Failed to fetch products")

		l.notify(snap)
		return Result{Outcome: OutcomeFailed, Cursor: cursor}, err
	}

	if page.Empty() {
		l.list.exhaust()
		snap = l.list.snapshot()
		l.mu.Unlock()

		loaderLoadsTotal.WithLabelValues(OutcomeExhausted.String()).Inc()
		l.logger.Info().
			Int("cursor", cursor).
			Int("items", len(snap.Items)).
			Msg("Reached the end of the catalog")

		l.notify(snap)
		return Result{Outcome: OutcomeExhausted, Cursor: cursor}, nil
	}

	received := len(page.Products)
	l.list.appendPage(cursor, page.Products)
	snap = l.list.snapshot()
	l.mu.Unlock()

	loaderItemsAppendedTotal.Add(float64(received))
	loaderLoadsTotal.WithLabelValues(OutcomeAppended.String()).Inc()
	if received < PageSize {
		// The catalog's offsets count requested items, so the cursor still
		// moves by PageSize.
		l.logger.Debug().
			Int("cursor", cursor).
			Int("received", received).
			Msg("Short page")
	}
	l.logger.Debug().
		Int("cursor", cursor).
		Int("received", received).
		Int("next_cursor", snap.Cursor).
		Int("items", len(snap.Items)).
		Msg("Appended page")

	l.notify(snap)
	return Result{Outcome: OutcomeAppended, Cursor: cursor, Received: received}, nil
}

// LoadNext requests the page at the current cursor.
func (l *Loader) LoadNext(ctx context.Context) (Result, error) {
	l.mu.Lock()
	cursor := l.list.cursor
	l.mu.Unlock()

	res, err := l.LoadPage(ctx, cursor)
	if errors.Is(err, ErrStaleCursor) {
		// Another load advanced the cursor in between.
		return res, nil
	}
	return res, err
}

// InitialLoad requests the first page. Only the first call has an effect.
func (l *Loader) InitialLoad(ctx context.Context) (Result, error) {
	l.mu.Lock()
	if l.initialized || l.list.pages > 0 || l.list.cursor != 0 {
		l.initialized = true
		l.mu.Unlock()
		return l.skip(0, "already initialized"), nil
	}
	l.initialized = true
	l.mu.Unlock()

	res, err := l.LoadPage(ctx, 0)
	if errors.Is(err, ErrStaleCursor) {
		return res, nil
	}
	return res, err
}

// Activate subscribes the loader to sentinel on observer and starts the
// initial load in the background. Loads started by the trigger use ctx.
func (l *Loader) Activate(ctx context.Context, observer trigger.Observer, sentinel trigger.Sentinel) error {
	if observer == nil {
		return fmt.Errorf("observer cannot be nil")
	}

	l.mu.Lock()
	if l.deactivated {
		l.mu.Unlock()
		return ErrDeactivated
	}
	if l.active {
		l.mu.Unlock()
		return ErrAlreadyActive
	}
	l.active = true
	l.observer = observer
	l.sentinel = sentinel
	l.ctx = ctx
	l.mu.Unlock()

	l.logger.Info().Str("sentinel", string(sentinel)).Msg("Loader activated")

	l.spawn(func(ctx context.Context) {
		_, _ = l.InitialLoad(ctx)
	})

	if err := observer.Observe(sentinel, l.onVisible); err != nil {
		l.mu.Lock()
		l.active = false
		l.observer = nil
		l.mu.Unlock()
		return fmt.Errorf("observe sentinel %q: %w", sentinel, err)
	}
	l.releaseIfDeactivated(observer, sentinel)

	return nil
}

// Deactivate releases the trigger subscription. A fetch still in flight
// completes but its result is discarded. Deactivate is idempotent.
func (l *Loader) Deactivate() {
	l.mu.Lock()
	if l.deactivated {
		l.mu.Unlock()
		return
	}
	l.deactivated = true
	observer, sentinel := l.observer, l.sentinel
	l.observer = nil
	l.active = false
	l.mu.Unlock()

	if observer != nil {
		observer.Unobserve(sentinel)
	}
	l.logger.Info().Msg("Loader deactivated")
}

// Rearm re-subscribes to the sentinel so that a sentinel which is still
// visible fires again. Hosts call it after rendering a newly appended page,
// once the sentinel's visibility has been reported for the new layout.
func (l *Loader) Rearm() {
	l.mu.Lock()
	if !l.active || l.deactivated || l.list.state == StateExhausted {
		l.mu.Unlock()
		return
	}
	observer, sentinel := l.observer, l.sentinel
	l.mu.Unlock()

	observer.Unobserve(sentinel)
	if err := observer.Observe(sentinel, l.onVisible); err != nil {
		l.logger.Warn().Err(err).Str("sentinel", string(sentinel)).Msg("Failed to re-arm trigger")
		return
	}
	l.releaseIfDeactivated(observer, sentinel)
}

// releaseIfDeactivated undoes a subscription made outside l.mu when
// Deactivate ran concurrently. Deactivate marks the loader before it
// unsubscribes, so either it or this check removes the handler.
func (l *Loader) releaseIfDeactivated(observer trigger.Observer, sentinel trigger.Sentinel) {
	l.mu.Lock()
	deactivated := l.deactivated
	l.mu.Unlock()
	if deactivated {
		observer.Unobserve(sentinel)
	}
}

// onVisible is the trigger handler. It must not block the reporter.
func (l *Loader) onVisible() {
	l.mu.Lock()
	ready := l.active && l.list.state == StateIdle
	l.mu.Unlock()
	if !ready {
		return
	}

	l.spawn(func(ctx context.Context) {
		_, _ = l.LoadNext(ctx)
	})
}

func (l *Loader) spawn(fn func(context.Context)) {
	l.mu.Lock()
	ctx := l.ctx
	l.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	l.background.Add(1)
	go func() {
		defer l.background.Done()
		fn(ctx)
	}()
}

// Wait blocks until all loads started by the trigger or by Activate have
// returned.
func (l *Loader) Wait() {
	l.background.Wait()
}
