package render

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/vgrid/internal/pool"
)

// MarkerNegative is attached to cells holding a negative number.
const MarkerNegative = "num-negative"

var numberStyle = lipgloss.NewStyle().Align(lipgloss.Right)

// Number renders numeric values right aligned. Values that are not numbers
// fall back to plain text.
type Number struct {
	// Precision is the number of decimals for floats; negative means the
	// shortest exact representation.
	Precision int
}

func (n Number) Render(h *pool.Handle, p Params) error {
	text, negative, ok := n.format(p.Value)
	if !ok {
		text = singleLine(FormatValue(p.Value))
	}
	if negative {
		h.AddMarker(MarkerNegative)
	} else {
		h.RemoveMarker(MarkerNegative)
	}
	text = Truncate(text, p.Width)
	if p.Width > 0 {
		text = numberStyle.Width(p.Width).Render(text)
	}
	h.SetContent(text)
	return nil
}

func (n Number) Update(h *pool.Handle, p Params) error { return n.Render(h, p) }

func (Number) Destroy(h *pool.Handle) {
	h.RemoveMarker(MarkerNegative)
	h.SetContent("")
}

func (n Number) format(v any) (text string, negative, ok bool) {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x), x < 0, true
	case int8:
		return strconv.FormatInt(int64(x), 10), x < 0, true
	case int16:
		return strconv.FormatInt(int64(x), 10), x < 0, true
	case int32:
		return strconv.FormatInt(int64(x), 10), x < 0, true
	case int64:
		return strconv.FormatInt(x, 10), x < 0, true
	case uint:
		return strconv.FormatUint(uint64(x), 10), false, true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), false, true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), false, true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), false, true
	case uint64:
		return strconv.FormatUint(x, 10), false, true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', n.Precision, 32), x < 0, true
	case float64:
		return strconv.FormatFloat(x, 'f', n.Precision, 64), x < 0, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return "", false, false
		}
		return strconv.FormatFloat(f, 'f', n.Precision, 64), f < 0, true
	default:
		return "", false, false
	}
}
