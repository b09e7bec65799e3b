package render

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/zjrosen/vgrid/internal/pool"
)

// Wrap renders the value word-wrapped to the cell width. Its natural height
// is the number of wrapped lines, which makes it the usual choice for
// auto-height columns.
type Wrap struct {
	// MaxLines caps the output; zero means unlimited.
	MaxLines int
}

func (w Wrap) Render(h *pool.Handle, p Params) error {
	h.SetContent(w.wrap(FormatValue(p.Value), p.Width))
	return nil
}

func (w Wrap) Update(h *pool.Handle, p Params) error { return w.Render(h, p) }

func (Wrap) Destroy(h *pool.Handle) { h.SetContent("") }

func (w Wrap) wrap(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	// Word wrap first, then hard-wrap words longer than the cell.
	out := wrap.String(wordwrap.String(s, width), width)
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	if w.MaxLines > 0 && len(lines) > w.MaxLines {
		lines = lines[:w.MaxLines]
		last := lines[len(lines)-1]
		lines[len(lines)-1] = Truncate(last+" "+ellipsis, width)
	}
	return strings.Join(lines, "\n")
}
