// Package render defines the cell renderer contract and the built-in
// renderers.
//
// A renderer paints a value into a pool.Handle. Render is called for the
// first paint of a cell or after the cell's renderer changed, Update for a
// repaint by the same renderer, and Destroy before a handle painted by the
// renderer is handed to a different one.
package render

import (
	"github.com/zjrosen/vgrid/internal/cache"
	"github.com/zjrosen/vgrid/internal/pool"
)

// Params describes the cell being painted.
type Params struct {
	Value    any
	Row      int // visual row
	Col      int // visual column
	DataRow  int
	DataCol  int
	ColumnID string
	Width    int
	Height   int
	Flags    cache.Flags
}

// Renderer paints cell content into a handle.
type Renderer interface {
	Render(h *pool.Handle, p Params) error
	Update(h *pool.Handle, p Params) error
	Destroy(h *pool.Handle)
}

// MarkerClasser is implemented by renderers that derive a presentation marker
// from the cell. The engine attaches the returned class after painting; an
// empty string attaches nothing.
type MarkerClasser interface {
	MarkerClass(p Params) string
}

// Identifier is implemented by renderer instances that supply their own
// stable identity for cache keys and change detection.
type Identifier interface {
	Identity() string
}

// Func adapts a plain function into a Renderer. Update repaints with the same
// function and Destroy clears the content.
type Func func(p Params) (string, error)

func (f Func) Render(h *pool.Handle, p Params) error {
	s, err := f(p)
	if err != nil {
		return err
	}
	h.SetContent(s)
	return nil
}

func (f Func) Update(h *pool.Handle, p Params) error { return f.Render(h, p) }

func (f Func) Destroy(h *pool.Handle) { h.SetContent("") }
