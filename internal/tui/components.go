package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/query"
)

// tableState is the kind-independent view of a controller snapshot.
type tableState struct {
	kind       query.Kind
	opts       query.Options
	search     string
	filters    []string
	rows       []query.Fielder
	totalItems int
	totalPages int
	loading    bool
	loaded     bool
	empty      bool
	err        error
}

func snapshot[T query.Fielder](c *browse.Controller[T]) tableState {
	st := c.State()
	rows := make([]query.Fielder, len(st.Rows))
	for i, r := range st.Rows {
		rows[i] = r
	}
	return tableState{
		kind:       st.Kind,
		opts:       st.Options,
		search:     st.Search,
		filters:    st.Filters,
		rows:       rows,
		totalItems: st.TotalItems,
		totalPages: st.TotalPages,
		loading:    st.Loading,
		loaded:     st.Loaded,
		empty:      st.Empty(),
		err:        st.Err,
	}
}

// columnWidths fits the catalog widths into width, shrinking the first
// column down to a minimum of 12 cells.
func columnWidths(cols []browse.Column, width int) []int {
	widths := make([]int, len(cols))
	total := len(cols) - 1
	for i, c := range cols {
		widths[i] = c.Width
		if widths[i] < len(c.Label)+2 {
			widths[i] = len(c.Label) + 2
		}
		total += widths[i]
	}
	if over := total - width; over > 0 && len(widths) > 0 {
		widths[0] -= over
		if widths[0] < 12 {
			widths[0] = 12
		}
	}
	return widths
}

func renderTable(layout browse.Layout, st tableState, cursor, width int) string {
	widths := columnWidths(layout.Columns, width)

	header := make([]string, len(layout.Columns))
	for i, col := range layout.Columns {
		label := col.Label
		style := ColumnHeaderStyle
		if col.Field == st.opts.SortField {
			if st.opts.SortDirection == query.Desc {
				label += " ↓"
			} else {
				label += " ↑"
			}
			style = SortedColumnStyle
		}
		header[i] = style.Render(fit(label, widths[i]))
	}

	lines := []string{strings.Join(header, " ")}
	for r, rec := range st.rows {
		cells := make([]string, len(layout.Columns))
		for i, col := range layout.Columns {
			cells[i] = fit(col.Cell(rec), widths[i])
			if col.Format == "date" && r != cursor {
				cells[i] = TimeStyle.Render(cells[i])
			}
		}
		line := strings.Join(cells, " ")
		if r == cursor {
			lines = append(lines, SelectedRowStyle.Render(line))
		} else {
			lines = append(lines, RowStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// renderChips renders selected keywords; minted entries stand out.
func renderChips(words []string, minted func(string) bool) string {
	chips := make([]string, len(words))
	for i, w := range words {
		if minted != nil && minted(w) {
			chips[i] = MintedChipStyle.Render(w + " +")
		} else {
			chips[i] = ChipStyle.Render(w)
		}
	}
	return strings.Join(chips, " ")
}

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame draws a rounded bordered container around a rendered input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}
