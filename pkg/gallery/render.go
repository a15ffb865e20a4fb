package gallery

import (
	"strings"

	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
	"github.com/Sternrassler/catalog-scroll/pkg/pagination"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"
)

const (
	cardGap          = 1
	minCardWidth     = 28
	maxColumns       = 4
	descriptionLines = 2
)

// Status lines shown below the grid. StatusFirstPage only appears before the
// terminal size is known.
const (
	StatusFirstPage   = "Loading products..."
	StatusLoadingMore = "Loading more…"
	StatusEnd         = "You've reached the end of the list."
)

// columnsFor returns how many cards fit side by side in width cells.
func columnsFor(width int) int {
	cols := (width + cardGap) / (minCardWidth + cardGap)
	if cols < 1 {
		return 1
	}
	if cols > maxColumns {
		return maxColumns
	}
	return cols
}

func formatPrice(p decimal.Decimal) string {
	return "$" + p.StringFixed(2)
}

// clampLines word-wraps text to width and returns exactly n lines. Text that
// does not fit ends in an ellipsis.
func clampLines(text string, width, n int) []string {
	out := make([]string, n)
	if width < 1 {
		return out
	}

	wrapped := strings.Split(ansi.Wrap(strings.TrimSpace(text), width, ""), "\n")
	for i := 0; i < n && i < len(wrapped); i++ {
		out[i] = strings.TrimRight(wrapped[i], " ")
	}
	if len(wrapped) > n {
		out[n-1] = ansi.Truncate(out[n-1], width-1, "") + "…"
	}
	return out
}

func renderCard(item catalog.Item, width int) string {
	inner := width - cardStyle.GetHorizontalFrameSize()
	if inner < 1 {
		inner = 1
	}

	lines := []string{
		mutedStyle.Render(ansi.Truncate(item.ThumbnailURL, inner, "…")),
		titleStyle.Render(ansi.Truncate(item.Title, inner, "…")),
	}
	lines = append(lines, clampLines(item.Description, inner, descriptionLines)...)
	lines = append(lines, priceStyle.Render(formatPrice(item.Price)))

	return cardStyle.
		Width(width - cardStyle.GetHorizontalBorderSize()).
		Render(strings.Join(lines, "\n"))
}

// renderGrid lays items out in rows of columnsFor(width) cards.
func renderGrid(items []catalog.Item, width int) string {
	if len(items) == 0 {
		return ""
	}

	cols := columnsFor(width)
	cardWidth := (width - (cols-1)*cardGap) / cols
	if cardWidth < 1 {
		cardWidth = 1
	}
	gap := strings.Repeat(" ", cardGap)

	rows := make([]string, 0, (len(items)+cols-1)/cols)
	for start := 0; start < len(items); start += cols {
		end := start + cols
		if end > len(items) {
			end = len(items)
		}

		cells := make([]string, 0, 2*(end-start))
		for i := start; i < end; i++ {
			if i > start {
				cells = append(cells, gap)
			}
			cells = append(cells, renderCard(items[i], cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(rows, "\n")
}

// statusText returns the line shown below the grid for a snapshot.
func statusText(s pagination.Snapshot) string {
	switch s.State {
	case pagination.StateLoading:
		return StatusLoadingMore
	case pagination.StateExhausted:
		return StatusEnd
	default:
		return ""
	}
}

// renderBody returns the scrollable content and the index of the sentinel
// line, which is always the last line. grid is the output of renderGrid.
func renderBody(grid string, s pagination.Snapshot, width int, spin string) (string, int) {
	var b strings.Builder

	if grid != "" {
		b.WriteString(grid)
		b.WriteString("\n")
	}

	status := statusText(s)
	if status != "" {
		if s.State == pagination.StateLoading {
			status = spin + " " + status
		}
		status = statusStyle.Render(status)
	}
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("·", min(width, 3))))

	body := b.String()
	return body, strings.Count(body, "\n")
}
