package gridview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/ui/styles"
)

var badgeColors = map[string]lipgloss.TerminalColor{
	"badge-open":        styles.StatusSuccessColor,
	"badge-in-progress": styles.StatusWarningColor,
	"badge-blocked":     styles.StatusErrorColor,
	"badge-closed":      styles.TextMutedColor,
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if m.showHelp {
		return lipgloss.NewStyle().Width(m.width).Height(m.height).Render(m.help.View(m.keys))
	}

	lines := make([]string, 0, m.height)
	lines = append(lines, m.renderHeader())
	lines = append(lines, m.renderBody()...)
	if m.showStatus {
		lines = append(lines, m.renderStatus())
	}
	return zone.Scan(strings.Join(lines, "\n"))
}

// renderHeader draws the column titles aligned with the painted columns.
func (m *Model) renderHeader() string {
	rng, ok := m.engine.LastRange()
	if !ok {
		return ""
	}
	cols := m.engine.Columns()
	var b strings.Builder
	for c := rng.StartCol; c < rng.EndCol; c++ {
		b.WriteString(fit(cols[c].Title, cols[c].Width))
	}
	return styles.HeaderStyle.Render(m.clip(b.String(), rng.StartCol))
}

// renderBody composites the active handles of the last painted range into
// one line per viewport row.
func (m *Model) renderBody() []string {
	_, bodyH := m.bodySize()
	lines := make([]string, bodyH)
	rng, ok := m.engine.LastRange()
	if !ok {
		return lines
	}
	rows := m.engine.Rows()
	cols := m.engine.Columns()
	top := m.engine.ScrollPosition().Top

	for r := rng.StartRow; r < rng.EndRow; r++ {
		y, err := rows.Offset(r)
		if err != nil {
			continue
		}
		height, _ := rows.Size(r)
		for i := 0; i < height; i++ {
			screenY := y + i - top
			if screenY < 0 || screenY >= bodyH {
				continue
			}
			var b strings.Builder
			for c := rng.StartCol; c < rng.EndCol; c++ {
				h, ok := m.engine.Handle(r, c)
				seg := strings.Repeat(" ", cols[c].Width)
				if ok {
					seg = cellStyle(h).Render(fit(lineAt(h.Content(), i), cols[c].Width))
				}
				if i == 0 {
					seg = zone.Mark(m.cellZone(r, c), seg)
				}
				b.WriteString(seg)
			}
			lines[screenY] = m.clip(b.String(), rng.StartCol)
		}
	}
	return lines
}

// clip cuts a line that starts at the offset of startCol down to the
// horizontal viewport.
func (m *Model) clip(line string, startCol int) string {
	x, _ := m.engine.Cols().Offset(startCol)
	if cut := m.engine.ScrollPosition().Left - x; cut > 0 {
		line = ansi.TruncateLeft(line, cut, "")
	}
	return ansi.Truncate(line, m.width, "")
}

func (m *Model) renderStatus() string {
	if err := m.Err(); err != nil {
		return styles.ErrorStyle.Render(ansi.Truncate(" error: "+err.Error(), m.width, "…"))
	}
	ps := m.engine.PoolStats()
	cs := m.engine.CacheStats()
	fs := m.engine.LastFrame()
	colID := ""
	if col, ok := m.currentColumn(); ok {
		colID = col.ID
	}
	text := fmt.Sprintf(" row %d/%d  %s  │ pool %d active %d idle │ cache %.0f%% %d/%d │ frame %d rendered %d updated %d skipped",
		m.cursor.Row+1, m.engine.Rows().Count(), colID,
		ps.Active, ps.Idle,
		cs.HitRate(), cs.Size, cs.Capacity,
		fs.Renders, fs.Updates, fs.Skipped)
	if len(m.selected) > 0 {
		text += fmt.Sprintf(" │ %d selected", len(m.selected))
	}
	return styles.StatusStyle.Render(ansi.Truncate(text, m.width, "…"))
}

// cellStyle maps handle markers to presentation.
func cellStyle(h *pool.Handle) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor)
	for _, mk := range h.Markers() {
		if c, ok := badgeColors[mk]; ok {
			s = s.Foreground(c)
		}
	}
	if h.HasMarker(render.MarkerNegative) {
		s = s.Foreground(styles.StatusErrorColor)
	}
	if h.HasMarker(grid.MarkerSelected) {
		s = s.Background(styles.CellSelectedBgColor)
	}
	if h.HasMarker(grid.MarkerEditing) {
		s = s.Underline(true)
	}
	if h.HasMarker(grid.MarkerActive) {
		s = s.Reverse(true)
	}
	return s
}

// fit truncates or pads s to exactly width cells.
func fit(s string, width int) string {
	s = ansi.Truncate(s, width, "")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func lineAt(content string, i int) string {
	for ; i > 0; i-- {
		n := strings.IndexByte(content, '\n')
		if n < 0 {
			return ""
		}
		content = content[n+1:]
	}
	if n := strings.IndexByte(content, '\n'); n >= 0 {
		return content[:n]
	}
	return content
}
