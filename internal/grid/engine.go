// Package grid orchestrates cell rendering for a virtualized data grid.
//
// An Engine turns a scroll position into a visible cell range, binds a pooled
// handle to every cell in it, paints each handle with the column's renderer
// (or from the content cache), and releases handles that scrolled away. Rows
// with content-dependent height are measured in a deferred, coalesced frame
// and their new heights applied in one batch.
//
// The Engine is single-threaded: every method and every scheduled frame
// callback must run on the same goroutine (the Bubble Tea update loop in the
// terminal surface).
package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vgrid/internal/cache"
	"github.com/zjrosen/vgrid/internal/dimension"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/tracing"
	"github.com/zjrosen/vgrid/internal/viewport"
)

var (
	// ErrDestroyed is returned by operations on a destroyed engine.
	ErrDestroyed = errors.New("grid: engine destroyed")

	// ErrUnknownColumn is returned when a column id does not exist.
	ErrUnknownColumn = errors.New("grid: unknown column")
)

// Interaction markers attached from InteractionState.
const (
	MarkerSelected = "cell-selected"
	MarkerActive   = "cell-active"
	MarkerEditing  = "cell-editing"
)

// ValueSource supplies cell values by data coordinates.
type ValueSource interface {
	Value(dataRow, dataCol int) any
}

// ValueFunc adapts a function into a ValueSource.
type ValueFunc func(dataRow, dataCol int) any

func (f ValueFunc) Value(dataRow, dataCol int) any { return f(dataRow, dataCol) }

// IndexMap maps a visual index to a data index, after sorting or filtering.
type IndexMap func(visual int) int

// InteractionState reports selection state for a visual cell.
type InteractionState interface {
	Flags(row, col int) cache.Flags
}

// InteractionFunc adapts a function into an InteractionState.
type InteractionFunc func(row, col int) cache.Flags

func (f InteractionFunc) Flags(row, col int) cache.Flags { return f(row, col) }

// Measurer returns the natural height of a painted handle.
type Measurer func(h *pool.Handle) int

// Cell addresses a visual cell.
type Cell struct {
	Row int
	Col int
}

// Tuning holds the knobs that can change while the engine runs.
type Tuning struct {
	OverscanRows int
	OverscanCols int

	// MinRowHeight floors measured row heights.
	MinRowHeight int

	// VelocityThreshold is the scroll speed, in offset units per second,
	// above which Scroll renders synchronously. Zero disables the bypass.
	VelocityThreshold float64

	CacheCapacity int
	CacheEnabled  bool

	FastScrollBypass bool
	AutoHeight       bool
}

// DefaultTuning returns the tuning used when Options.Tuning is nil.
func DefaultTuning() Tuning {
	return Tuning{
		OverscanRows:      2,
		OverscanCols:      1,
		MinRowHeight:      1,
		VelocityThreshold: 240,
		CacheCapacity:     cache.DefaultCapacity,
		CacheEnabled:      true,
		FastScrollBypass:  true,
		AutoHeight:        true,
	}
}

func (t Tuning) normalize() Tuning {
	t.OverscanRows = max(t.OverscanRows, 0)
	t.OverscanCols = max(t.OverscanCols, 0)
	t.MinRowHeight = max(t.MinRowHeight, 1)
	if t.CacheCapacity <= 0 {
		t.CacheCapacity = cache.DefaultCapacity
	}
	return t
}

// Options configures an Engine. Columns, Values and Scheduler are required.
type Options struct {
	Columns ColumnSource
	Values  ValueSource

	// Rows provides row heights. When nil a uniform provider of RowCount
	// rows of RowHeight (default 1) is used.
	Rows      dimension.Provider
	RowCount  int
	RowHeight int

	// RowMap maps visual rows to data rows; nil is the identity.
	RowMap IndexMap
	// ColMap maps visual columns to data columns; nil uses Column.Field.
	ColMap IndexMap

	// State supplies interaction flags; nil means no cell is selected.
	State InteractionState

	// Registry resolves named renderers; nil uses render.NewRegistry().
	Registry *render.Registry

	Scheduler Scheduler

	// Measurer defaults to the line count of the handle content.
	Measurer Measurer

	Viewport viewport.Size

	// Tuning defaults to DefaultTuning when nil. A non-nil tuning is used
	// as given, so zero switches stay off.
	Tuning *Tuning
	Pool   pool.Options

	// CacheTTL expires cache entries; zero keeps them until evicted.
	CacheTTL time.Duration

	// Tracer records a span per frame pass; nil disables tracing.
	Tracer trace.Tracer

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// FrameStats counts the work done by one frame pass.
type FrameStats struct {
	Cells     int
	Renders   int
	Updates   int
	Skipped   int
	CacheHits int
	Destroys  int
	Released  int
}

type tracked struct {
	identity string
	renderer render.Renderer

	// contentKey is empty until the cell has been painted successfully.
	contentKey string

	// rendererMarkers are the markers the renderer added on its last paint.
	rendererMarkers []string
	class           string
}

// Engine is the cell orchestrator.
type Engine struct {
	columns  ColumnSource
	values   ValueSource
	rowMap   IndexMap
	colMap   IndexMap
	state    InteractionState
	registry *render.Registry
	sched    Scheduler
	measure  Measurer
	tracer   trace.Tracer
	tuning   Tuning

	rows    dimension.Provider
	cols    dimension.Provider
	visible []Column

	size   viewport.Size
	scroll viewport.Scroll

	pool     *pool.Pool
	cache    *cache.Cache
	velocity *viewport.Velocity

	tracked map[pool.CellKey]*tracked

	lastRange viewport.Range
	hasRange  bool
	lastFrame FrameStats
	frame     *FrameStats // counters of the pass in progress

	pending      map[int]map[pool.CellKey]struct{}
	measured     map[int]struct{}
	measureFrame FrameID

	scrollFrame   FrameID
	pendingScroll viewport.Scroll

	err       error
	destroyed bool
}

// New creates an engine. Nothing is rendered until RenderVisible or Scroll.
func New(opts Options) (*Engine, error) {
	if opts.Columns == nil {
		return nil, errors.New("grid: column source required")
	}
	if opts.Values == nil {
		return nil, errors.New("grid: value source required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("grid: scheduler required")
	}

	rows := opts.Rows
	if rows == nil {
		height := opts.RowHeight
		if height == 0 {
			height = 1
		}
		u, err := dimension.NewUniform(opts.RowCount, height)
		if err != nil {
			return nil, fmt.Errorf("grid: rows: %w", err)
		}
		rows = u
	}

	tuning := DefaultTuning()
	if opts.Tuning != nil {
		tuning = opts.Tuning.normalize()
	}
	c, err := cache.New(cache.Options{
		Capacity: tuning.CacheCapacity,
		TTL:      opts.CacheTTL,
		Stats:    true,
		Clock:    opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("grid: cache: %w", err)
	}
	c.SetEnabled(tuning.CacheEnabled)

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		columns:  opts.Columns,
		values:   opts.Values,
		rowMap:   opts.RowMap,
		colMap:   opts.ColMap,
		state:    opts.State,
		registry: opts.Registry,
		sched:    opts.Scheduler,
		measure:  opts.Measurer,
		tracer:   opts.Tracer,
		tuning:   tuning,
		rows:     rows,
		size:     opts.Viewport,
		cache:    c,
		velocity: viewport.NewVelocity(clock),
		tracked:  make(map[pool.CellKey]*tracked),
		pending:  make(map[int]map[pool.CellKey]struct{}),
		measured: make(map[int]struct{}),
	}
	if e.registry == nil {
		e.registry = render.NewRegistry()
	}
	if e.measure == nil {
		e.measure = func(h *pool.Handle) int { return lipgloss.Height(h.Content()) }
	}
	if e.tracer == nil {
		e.tracer = tracing.Noop().Tracer()
	}

	poolOpts := opts.Pool
	userRelease := poolOpts.OnRelease
	poolOpts.OnRelease = func(h *pool.Handle) {
		e.onRelease(h)
		if userRelease != nil {
			userRelease(h)
		}
	}
	e.pool = pool.New(poolOpts)

	if err := e.syncColumns(); err != nil {
		return nil, err
	}
	return e, nil
}

// syncColumns snapshots the visible columns and rebuilds the column axis.
func (e *Engine) syncColumns() error {
	cols := e.columns.OrderedVisibleColumns()
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = c.Width
	}
	p, err := dimension.NewStatic(widths)
	if err != nil {
		return fmt.Errorf("grid: columns: %w", err)
	}
	e.visible = cols
	e.cols = p
	return nil
}

// onRelease runs for every handle leaving the visible set.
func (e *Engine) onRelease(h *pool.Handle) {
	key, ok := h.Key()
	if !ok {
		return
	}
	if tr, ok := e.tracked[key]; ok {
		tr.renderer.Destroy(h)
		delete(e.tracked, key)
		if e.frame != nil {
			e.frame.Destroys++
		}
	}
	if keys, ok := e.pending[key.Row]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(e.pending, key.Row)
		}
	}
}

// RenderVisible paints the range visible at the given scroll position and
// cancels a queued scroll frame, which would otherwise paint an older
// position.
func (e *Engine) RenderVisible(scrollTop, scrollLeft int) error {
	if e.destroyed {
		return ErrDestroyed
	}
	e.cancelScrollFrame()
	return e.renderAt(viewport.Scroll{Top: scrollTop, Left: scrollLeft}, "render")
}

func (e *Engine) cancelScrollFrame() {
	if e.scrollFrame != 0 {
		e.sched.CancelFrame(e.scrollFrame)
		e.scrollFrame = 0
	}
}

// Scroll renders at most once per frame for the latest position. A scroll
// faster than the velocity threshold renders immediately and cancels the
// pending frame.
func (e *Engine) Scroll(scrollTop, scrollLeft int) error {
	if e.destroyed {
		return ErrDestroyed
	}
	pos := viewport.Scroll{Top: scrollTop, Left: scrollLeft}
	speed := e.velocity.Record(pos)
	if e.tuning.FastScrollBypass && e.tuning.VelocityThreshold > 0 && speed >= e.tuning.VelocityThreshold {
		e.cancelScrollFrame()
		log.Debug(log.CatGrid, "fast scroll bypass", "speed", speed, "top", scrollTop)
		return e.renderAt(pos, "fast-scroll")
	}

	e.pendingScroll = pos
	if e.scrollFrame == 0 {
		e.scrollFrame = e.sched.RequestFrame(e.scrollFrameFn)
	}
	return nil
}

func (e *Engine) scrollFrameFn() {
	e.scrollFrame = 0
	if e.destroyed {
		return
	}
	if err := e.renderAt(e.pendingScroll, "scroll"); err != nil {
		e.fail("scroll frame", err)
	}
}

// Refresh repaints the visible range, bypassing change detection and the
// content cache, and remeasures auto-height rows.
func (e *Engine) Refresh() error {
	if e.destroyed {
		return ErrDestroyed
	}
	if !e.hasRange {
		log.Debug(log.CatGrid, "refresh before first frame ignored")
		return nil
	}
	clear(e.measured)
	rng := e.rangeFor(e.scroll)
	_, err := e.pass(rng, passForce, "refresh")
	return err
}

// RefreshMarkersOnly reapplies interaction markers to active cells without
// invoking renderers.
func (e *Engine) RefreshMarkersOnly() {
	if e.destroyed {
		return
	}
	if !e.hasRange {
		log.Debug(log.CatGrid, "marker refresh before first frame ignored")
		return
	}
	for _, h := range e.pool.ActiveHandles() {
		key, _ := h.Key()
		e.applyInteraction(h, e.flags(key.Row, key.Col))
	}
}

// UpdateCells repaints the given cells if they are in the visible range.
func (e *Engine) UpdateCells(cells []Cell) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if !e.hasRange {
		log.Debug(log.CatGrid, "cell update before first frame ignored", "cells", len(cells))
		return nil
	}
	var st FrameStats
	for _, c := range cells {
		if !e.lastRange.Contains(c.Row, c.Col) {
			continue
		}
		if e.visible[c.Col].AutoHeight {
			delete(e.measured, c.Row)
		}
		if err := e.paintCell(pool.CellKey{Row: c.Row, Col: c.Col}, true, &st); err != nil {
			return err
		}
	}
	e.scheduleMeasure()
	return nil
}

// SetViewport resizes the viewport and repaints when a frame exists.
func (e *Engine) SetViewport(width, height int) error {
	if e.destroyed {
		return ErrDestroyed
	}
	e.size = viewport.Size{Width: width, Height: height}
	if !e.hasRange {
		return nil
	}
	return e.renderAt(e.scroll, "resize")
}

// HandleColumnChange resyncs the column layout after a ColumnSource change
// and repaints when a frame exists.
func (e *Engine) HandleColumnChange(ch ColumnChange) error {
	if e.destroyed {
		return ErrDestroyed
	}
	before := e.visible
	if err := e.syncColumns(); err != nil {
		return err
	}
	log.Debug(log.CatGrid, "column change", "type", ch.Type, "column", ch.ColumnID)

	switch ch.Type {
	case ChangeWidth:
		for v, c := range e.visible {
			if c.ID != ch.ColumnID {
				continue
			}
			e.cache.InvalidateColumn(e.dataCol(v))
			if c.AutoHeight {
				clear(e.measured)
			}
		}
	case ChangeVisibility:
		if hasAutoHeight(before) || hasAutoHeight(e.visible) {
			clear(e.measured)
		}
	}

	if !e.hasRange {
		return nil
	}
	return e.renderAt(e.scroll, "columns")
}

func hasAutoHeight(cols []Column) bool {
	for _, c := range cols {
		if c.AutoHeight {
			return true
		}
	}
	return false
}

// Reconfigure applies new tuning and repaints when a frame exists.
func (e *Engine) Reconfigure(t Tuning) error {
	if e.destroyed {
		return ErrDestroyed
	}
	t = t.normalize()
	old := e.tuning
	e.tuning = t
	if t.CacheCapacity != old.CacheCapacity {
		e.cache.Resize(t.CacheCapacity)
	}
	if t.CacheEnabled != old.CacheEnabled {
		e.cache.SetEnabled(t.CacheEnabled)
	}
	if t.AutoHeight != old.AutoHeight || t.MinRowHeight != old.MinRowHeight {
		clear(e.measured)
	}
	log.Info(log.CatGrid, "tuning updated",
		"overscan_rows", t.OverscanRows,
		"cache_capacity", t.CacheCapacity,
		"velocity_threshold", t.VelocityThreshold)
	if !e.hasRange {
		return nil
	}
	return e.renderAt(e.scroll, "reconfigure")
}

// SetRows replaces the row provider, for example after the row count
// changed, and repaints when a frame exists.
func (e *Engine) SetRows(rows dimension.Provider) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if rows == nil {
		return errors.New("grid: nil row provider")
	}
	e.rows = rows
	clear(e.measured)
	clear(e.pending)
	if !e.hasRange {
		return nil
	}
	return e.renderAt(e.scroll, "rows")
}

// Invalidate drops cached content and change tracking so the next pass
// renders every cell from scratch. Active handles are destroyed by the
// renderer that painted them first.
func (e *Engine) Invalidate() {
	e.cache.Clear()
	for _, h := range e.pool.ActiveHandles() {
		key, _ := h.Key()
		if tr, ok := e.tracked[key]; ok {
			tr.renderer.Destroy(h)
		}
	}
	clear(e.tracked)
	clear(e.measured)
}

// Destroy cancels pending frames and releases every handle. Later calls
// return ErrDestroyed.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.cancelScrollFrame()
	if e.measureFrame != 0 {
		e.sched.CancelFrame(e.measureFrame)
		e.measureFrame = 0
	}
	e.pool.Clear()
	e.cache.Clear()
	clear(e.tracked)
	clear(e.pending)
	clear(e.measured)
	e.hasRange = false
	e.destroyed = true
	log.Debug(log.CatGrid, "engine destroyed")
}

// Rows returns the row provider. It may change after a measurement upgrades
// a uniform provider.
func (e *Engine) Rows() dimension.Provider { return e.rows }

// Cols returns the column provider for the current layout.
func (e *Engine) Cols() dimension.Provider { return e.cols }

// Columns returns the visible columns of the current layout.
func (e *Engine) Columns() []Column { return e.visible }

// Viewport returns the viewport size.
func (e *Engine) Viewport() viewport.Size { return e.size }

// ScrollPosition returns the last rendered scroll position.
func (e *Engine) ScrollPosition() viewport.Scroll { return e.scroll }

// LastRange returns the range of the last frame pass.
func (e *Engine) LastRange() (viewport.Range, bool) { return e.lastRange, e.hasRange }

// LastFrame returns the counters of the last frame pass.
func (e *Engine) LastFrame() FrameStats { return e.lastFrame }

func (e *Engine) PoolStats() pool.Stats { return e.pool.Stats() }

func (e *Engine) CacheStats() cache.Stats { return e.cache.Stats() }

// Handles returns the active handles in row-major order.
func (e *Engine) Handles() []*pool.Handle { return e.pool.ActiveHandles() }

// Handle returns the active handle of a visual cell.
func (e *Engine) Handle(row, col int) (*pool.Handle, bool) {
	return e.pool.Active(pool.CellKey{Row: row, Col: col})
}

// Tuning returns the current tuning.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Err returns the last error raised inside a frame callback, where it
// could not be returned to a caller.
func (e *Engine) Err() error { return e.err }

func (e *Engine) fail(where string, err error) {
	e.err = err
	log.ErrorErr(log.CatGrid, where+" failed", err)
}

func (e *Engine) rangeFor(s viewport.Scroll) viewport.Range {
	return viewport.Compute(e.rows, e.cols, s, e.size, viewport.Overscan{
		Rows: e.tuning.OverscanRows,
		Cols: e.tuning.OverscanCols,
	})
}

func (e *Engine) renderAt(s viewport.Scroll, reason string) error {
	e.scroll = s
	_, err := e.pass(e.rangeFor(s), passNormal, reason)
	return err
}

func (e *Engine) dataRow(v int) int {
	if e.rowMap == nil {
		return v
	}
	return e.rowMap(v)
}

func (e *Engine) dataCol(v int) int {
	if e.colMap == nil {
		return e.visible[v].Field
	}
	return e.colMap(v)
}

func (e *Engine) flags(row, col int) cache.Flags {
	if e.state == nil {
		return cache.Flags{}
	}
	return e.state.Flags(row, col)
}

func (e *Engine) applyInteraction(h *pool.Handle, f cache.Flags) {
	toggle(h, MarkerSelected, f.Selected)
	toggle(h, MarkerActive, f.Active)
	toggle(h, MarkerEditing, f.Editing)
}

func toggle(h *pool.Handle, marker string, on bool) {
	if on {
		h.AddMarker(marker)
	} else {
		h.RemoveMarker(marker)
	}
}
