// Package gallery renders a loader's item list as a scrollable card grid in
// the terminal. After every update it reports whether the end of the list is
// on screen, which is what drives the loader's next fetch.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/catalog-scroll/pkg/pagination"
	"github.com/Sternrassler/catalog-scroll/pkg/trigger"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sentinel is the marker below the last card.
const Sentinel trigger.Sentinel = "gallery-end"

// Heading is the page title.
const Heading = "Product Search"

const (
	headerHeight = 2
	footerHeight = 2
)

// Model is the Bubble Tea model of the gallery.
type Model struct {
	ctx     context.Context
	loader  *pagination.Loader
	edge    *trigger.Edge
	updates *Updates
	logger  zerolog.Logger

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	snapshot     pagination.Snapshot
	grid         string
	sentinelLine int

	width, height int
	ready         bool
	quitting      bool
}

// New creates a gallery for loader. Sentinel visibility is reported to edge
// and snapshots published to updates are rendered as they arrive.
func New(ctx context.Context, loader *pagination.Loader, edge *trigger.Edge, updates *Updates) Model {
	if loader == nil {
		panic("loader cannot be nil")
	}

	return Model{
		ctx:      ctx,
		loader:   loader,
		edge:     edge,
		updates:  updates,
		logger:   log.With().Str("component", "gallery").Str("session_id", loader.ID()).Logger(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyle)),
		help:     help.New(),
		keys:     defaultKeyMap(),
		snapshot: loader.Snapshot(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.updates.wait(m.ctx))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.viewportHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.viewportHeight()
		}
		m.help.Width = msg.Width
		m.grid = renderGrid(m.snapshot.Items, m.width)
		m.refresh()
		m.reportSentinel()
		return m, nil

	case snapshotMsg:
		appended := msg.Pages > m.snapshot.Pages
		m.snapshot = pagination.Snapshot(msg)
		if m.ready {
			m.grid = renderGrid(m.snapshot.Items, m.width)
		}
		m.refresh()
		m.reportSentinel()
		if appended {
			m.loader.Rearm()
		}
		return m, m.updates.wait(m.ctx)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snapshot.State == pagination.StateLoading {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.loader.Deactivate()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Retry):
			return m, m.retry()
		case !m.ready:
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			m.reportSentinel()
			m.rearmAfterFailure()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			m.reportSentinel()
			m.rearmAfterFailure()
			return m, nil
		}
	}

	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.reportSentinel()
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		m.rearmAfterFailure()
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return headingStyle.Render(Heading) + "\n\n" + statusStyle.Render(StatusFirstPage)
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(Heading))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d items", len(m.snapshot.Items))))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.errorLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) viewportHeight() int {
	return max(m.height-headerHeight-footerHeight, 1)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	body, line := renderBody(m.grid, m.snapshot, m.width, m.spinner.View())
	m.viewport.SetContent(body)
	m.sentinelLine = line
}

// sentinelVisible reports whether the sentinel line is inside the viewport.
func (m Model) sentinelVisible() bool {
	top := m.viewport.YOffset
	return m.sentinelLine >= top && m.sentinelLine < top+m.viewport.Height
}

func (m Model) reportSentinel() {
	if !m.ready || m.edge == nil {
		return
	}
	m.edge.Report(Sentinel, m.sentinelVisible())
}

// rearmAfterFailure retries a failed page when the user scrolls while the
// sentinel stays on screen. A visible sentinel produces no new edge, so the
// trigger is re-armed once per input event.
func (m Model) rearmAfterFailure() {
	if !m.ready || m.edge == nil {
		return
	}
	if m.snapshot.State != pagination.StateIdle || m.snapshot.LastError == nil {
		return
	}
	if !m.sentinelVisible() {
		return
	}
	m.logger.Debug().Int("cursor", m.snapshot.Cursor).Msg("Re-arming trigger after failed page")
	m.loader.Rearm()
}

func (m Model) errorLine() string {
	if m.snapshot.LastError == nil {
		return ""
	}
	line := fmt.Sprintf("Couldn't load products: %v (r to retry)", m.snapshot.LastError)
	return errorStyle.Render(ansi.Truncate(line, m.width, "…"))
}

// retry reloads the page at the current cursor after a failed fetch.
func (m Model) retry() tea.Cmd {
	if m.snapshot.State != pagination.StateIdle || m.snapshot.LastError == nil {
		return nil
	}

	m.logger.Info().Int("cursor", m.snapshot.Cursor).Msg("Retrying failed page")
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		_, _ = loader.LoadNext(ctx)
		return nil
	}
}

// Run activates loader and shows the gallery until the user quits or ctx is
// done. The loader must publish its snapshots to updates.
func Run(ctx context.Context, loader *pagination.Loader, updates *Updates, opts ...tea.ProgramOption) error {
	edge := trigger.NewEdge()
	model := New(ctx, loader, edge, updates)

	if err := loader.Activate(ctx, edge, Sentinel); err != nil {
		return fmt.Errorf("activate loader: %w", err)
	}
	defer loader.Deactivate()

	model.logger.Info().Msg("Gallery started")

	options := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)

	_, err := tea.NewProgram(model, options...).Run()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run gallery: %w", err)
	}
	model.logger.Info().Int("items", len(loader.Snapshot().Items)).Msg("Gallery closed")
	return nil
}
