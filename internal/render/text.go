package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/zjrosen/vgrid/internal/pool"
)

const ellipsis = "…"

// Text renders the value as a single line truncated to the cell width.
type Text struct{}

func (Text) Render(h *pool.Handle, p Params) error {
	h.SetContent(Truncate(singleLine(FormatValue(p.Value)), p.Width))
	return nil
}

func (t Text) Update(h *pool.Handle, p Params) error { return t.Render(h, p) }

func (Text) Destroy(h *pool.Handle) { h.SetContent("") }

// FormatValue converts a cell value to display text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.DateTime)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

// DisplayWidth returns the terminal column width of s, measured per grapheme
// cluster.
func DisplayWidth(s string) int {
	w := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		w += runewidth.StringWidth(cluster)
	}
	return w
}

// Truncate shortens s to at most width columns, ending with an ellipsis when
// anything was cut. Grapheme clusters are never split.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if DisplayWidth(s) <= width {
		return s
	}
	budget := width - runewidth.StringWidth(ellipsis)
	var b strings.Builder
	used := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		cw := runewidth.StringWidth(cluster)
		if used+cw > budget {
			break
		}
		b.WriteString(cluster)
		used += cw
	}
	return b.String() + ellipsis
}
