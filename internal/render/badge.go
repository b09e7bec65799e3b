package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/vgrid/internal/pool"
)

var badgeBase = lipgloss.NewStyle().Padding(0, 1).Bold(true)

// Badge renders a short value as a padded label and exposes the value as a
// marker class ("badge-open", "badge-in-progress") for styling.
type Badge struct {
	// Colors maps a value to its background color.
	Colors map[string]lipgloss.Color
}

func (b Badge) Render(h *pool.Handle, p Params) error {
	text := singleLine(FormatValue(p.Value))
	if text == "" {
		h.SetContent("")
		return nil
	}
	style := badgeBase
	if c, ok := b.Colors[text]; ok {
		style = style.Background(c)
	}
	// Padding takes two columns.
	h.SetContent(style.Render(Truncate(text, p.Width-2)))
	return nil
}

func (b Badge) Update(h *pool.Handle, p Params) error { return b.Render(h, p) }

func (Badge) Destroy(h *pool.Handle) { h.SetContent("") }

// MarkerClass returns "badge-<slug>" for non-empty values.
func (Badge) MarkerClass(p Params) string {
	text := FormatValue(p.Value)
	if text == "" {
		return ""
	}
	return "badge-" + slug(text)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
