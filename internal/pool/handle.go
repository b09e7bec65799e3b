package pool

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// CellKey identifies a cell by visual row and column.
type CellKey struct {
	Row int
	Col int
}

// String renders the key as "row-col".
func (k CellKey) String() string {
	return fmt.Sprintf("%d-%d", k.Row, k.Col)
}

// Less orders keys row-major.
func (k CellKey) Less(o CellKey) bool {
	if k.Row != o.Row {
		return k.Row < o.Row
	}
	return k.Col < o.Col
}

// State is the lifecycle state of a Handle.
type State int

const (
	StatePooled State = iota // idle, bound to no cell
	StateActive              // bound to a live cell key
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePooled:
		return "pooled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Geometry is the position and size of a handle in grid coordinates.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Handle is a reusable render target. Renderers write content and markers to
// it; the pool rebinds it to different cells as the viewport moves.
type Handle struct {
	id      uuid.UUID
	key     CellKey
	state   State
	content string
	markers map[string]struct{}
	geom    Geometry

	// Constrained is false while the handle's height is relaxed for
	// auto-height measurement.
	constrained bool

	local any // renderer-private state, dropped on release
}

func newHandle() *Handle {
	return &Handle{
		id:          uuid.New(),
		markers:     make(map[string]struct{}),
		constrained: true,
	}
}

// ID returns the handle's stable identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// Key returns the cell the handle is bound to. The second result is false
// when the handle is pooled.
func (h *Handle) Key() (CellKey, bool) {
	return h.key, h.state == StateActive
}

// State returns whether the handle is active or pooled.
func (h *Handle) State() State { return h.state }

// SetContent replaces the rendered content.
func (h *Handle) SetContent(s string) { h.content = s }

// Content returns the rendered content.
func (h *Handle) Content() string { return h.content }

// AddMarker attaches a presentation marker (a style class).
func (h *Handle) AddMarker(name string) {
	if name == "" {
		return
	}
	h.markers[name] = struct{}{}
}

// RemoveMarker detaches a marker.
func (h *Handle) RemoveMarker(name string) { delete(h.markers, name) }

// HasMarker reports whether the marker is attached.
func (h *Handle) HasMarker(name string) bool {
	_, ok := h.markers[name]
	return ok
}

// Markers returns the attached markers in sorted order.
func (h *Handle) Markers() []string {
	out := make([]string, 0, len(h.markers))
	for m := range h.markers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// SetGeometry positions the handle.
func (h *Handle) SetGeometry(g Geometry) { h.geom = g }

// Geometry returns the handle's position and size.
func (h *Handle) Geometry() Geometry { return h.geom }

// Relax lifts the height constraint so content can expand to its natural size.
func (h *Handle) Relax() { h.constrained = false }

// Constrain fixes the handle's height.
func (h *Handle) Constrain(height int) {
	h.constrained = true
	h.geom.Height = height
}

// Constrained reports whether the height is fixed.
func (h *Handle) Constrained() bool { return h.constrained }

// SetLocal stores renderer-private state on the handle.
func (h *Handle) SetLocal(v any) { h.local = v }

// Local returns the renderer-private state.
func (h *Handle) Local() any { return h.local }

// reset clears everything cell-specific before the handle is pooled.
func (h *Handle) reset() {
	h.key = CellKey{}
	h.state = StatePooled
	h.content = ""
	clear(h.markers)
	h.geom = Geometry{}
	h.constrained = true
	h.local = nil
}
