// Package gridview is the terminal surface for the grid engine. It feeds
// keyboard, mouse and resize events to an Engine and composites the active
// cell handles into a frame.
package gridview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vgrid/internal/cache"
	"github.com/zjrosen/vgrid/internal/dimension"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/keys"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/pubsub"
	"github.com/zjrosen/vgrid/internal/render"
)

// RowSource supplies cell values and the row count.
type RowSource interface {
	grid.ValueSource
	Len() int
}

// Reloader is implemented by sources that can re-read their backing store.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Config configures a Model. Columns and Rows are required.
type Config struct {
	Columns  *grid.StaticColumns
	Rows     RowSource
	Registry *render.Registry

	Tuning    grid.Tuning
	Pool      pool.Options
	CacheTTL  time.Duration
	RowHeight int

	FrameInterval time.Duration
	WheelStep     int
	ShowStatusBar bool
	Tracer        trace.Tracer

	// KeyMap defaults to keys.DefaultKeyMap().
	KeyMap *keys.KeyMap

	// DataChanged signals that the row source should be reloaded.
	DataChanged <-chan struct{}

	// ConfigChanged signals that ReloadTuning should be applied.
	ConfigChanged <-chan struct{}
	ReloadTuning  func() (grid.Tuning, error)
}

type (
	dataChangedMsg   struct{}
	configChangedMsg struct{}
)

// Model hosts a grid engine inside a Bubble Tea program.
type Model struct {
	cfg      Config
	engine   *grid.Engine
	sched    *grid.TickScheduler
	columns  *grid.StaticColumns
	listener *pubsub.ContinuousListener[grid.ColumnChange]
	ctx      context.Context
	cancel   context.CancelFunc

	keys keys.KeyMap
	help help.Model

	width, height int
	started       bool
	showStatus    bool
	showHelp      bool

	// scroll is the requested position; the engine may paint it a frame
	// later.
	scrollTop, scrollLeft int

	cursor   grid.Cell
	selected map[grid.Cell]struct{}
	editing  bool

	zonePrefix string
	err        error
}

// New creates the model and its engine. Nothing renders until the first
// window size arrives.
func New(cfg Config) (*Model, error) {
	if cfg.Columns == nil || cfg.Rows == nil {
		return nil, errors.New("gridview: columns and rows are required")
	}
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = 1
	}
	if cfg.WheelStep <= 0 {
		cfg.WheelStep = 3
	}
	if cfg.Registry == nil {
		cfg.Registry = render.NewRegistry()
	}
	km := keys.DefaultKeyMap()
	if cfg.KeyMap != nil {
		km = *cfg.KeyMap
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		cfg:        cfg,
		sched:      grid.NewTickScheduler(cfg.FrameInterval),
		columns:    cfg.Columns,
		listener:   pubsub.NewContinuousListener[grid.ColumnChange](ctx, cfg.Columns.Broker()),
		ctx:        ctx,
		cancel:     cancel,
		keys:       km,
		help:       help.New(),
		showStatus: cfg.ShowStatusBar,
		selected:   make(map[grid.Cell]struct{}),
		zonePrefix: zone.NewPrefix(),
	}
	m.help.ShowAll = true

	engine, err := grid.New(grid.Options{
		Columns:   cfg.Columns,
		Values:    cfg.Rows,
		RowCount:  cfg.Rows.Len(),
		RowHeight: cfg.RowHeight,
		State:     m,
		Registry:  cfg.Registry,
		Scheduler: m.sched,
		Tuning:    &cfg.Tuning,
		Pool:      cfg.Pool,
		CacheTTL:  cfg.CacheTTL,
		Tracer:    cfg.Tracer,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	m.engine = engine
	return m, nil
}

// Flags reports the interaction state of a visual cell to the engine.
func (m *Model) Flags(row, col int) cache.Flags {
	_, sel := m.selected[grid.Cell{Row: row, Col: col}]
	active := m.cursor.Row == row && m.cursor.Col == col
	return cache.Flags{Selected: sel, Active: active, Editing: active && m.editing}
}

// Engine exposes the hosted engine.
func (m *Model) Engine() *grid.Engine { return m.engine }

// Columns returns the column source, for persisting the layout.
func (m *Model) Columns() *grid.StaticColumns { return m.columns }

// Cursor returns the active cell.
func (m *Model) Cursor() grid.Cell { return m.cursor }

// Selected reports whether a cell is selected.
func (m *Model) Selected(c grid.Cell) bool {
	_, ok := m.selected[c]
	return ok
}

// Err returns the last error from an engine call or frame.
func (m *Model) Err() error {
	if m.err != nil {
		return m.err
	}
	return m.engine.Err()
}

// Close stops listeners and destroys the engine.
func (m *Model) Close() error {
	m.cancel()
	m.engine.Destroy()
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.listener.Listen(),
		waitSignal(m.cfg.DataChanged, dataChangedMsg{}),
		waitSignal(m.cfg.ConfigChanged, configChangedMsg{}),
	)
}

// waitSignal delivers msg when ch fires. A nil channel yields no command.
func waitSignal(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)

	case grid.FrameMsg:
		cmd = m.sched.Flush()

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case pubsub.Event[grid.ColumnChange]:
		m.handleColumnChange(msg.Payload)
		cmd = m.listener.Listen()

	case dataChangedMsg:
		m.reload()
		cmd = waitSignal(m.cfg.DataChanged, dataChangedMsg{})

	case configChangedMsg:
		m.reconfigure()
		cmd = waitSignal(m.cfg.ConfigChanged, configChangedMsg{})
	}
	return m, tea.Batch(cmd, m.sched.Cmd())
}

func (m *Model) setSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	w, h := m.bodySize()
	if !m.started {
		if err := m.engine.SetViewport(w, h); err != nil {
			m.err = err
			return
		}
		m.started = true
		m.record(m.engine.RenderVisible(0, 0))
		return
	}
	m.record(m.engine.SetViewport(w, h))
	m.scrollTo(m.scrollTop, m.scrollLeft)
}

// bodySize is the viewport left for cells after the header and status line.
func (m *Model) bodySize() (int, int) {
	h := m.height - 1
	if m.showStatus {
		h--
	}
	return max(m.width, 0), max(h, 0)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil
		}
		m.editing = false
		clear(m.selected)
		m.engine.RefreshMarkersOnly()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.cursor.Row-1, m.cursor.Col)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.cursor.Row+1, m.cursor.Col)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(m.cursor.Row, m.cursor.Col-1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(m.cursor.Row, m.cursor.Col+1)
	case key.Matches(msg, m.keys.PageDown):
		m.page(1)
	case key.Matches(msg, m.keys.PageUp):
		m.page(-1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(0, m.cursor.Col)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.engine.Rows().Count()-1, m.cursor.Col)
	case key.Matches(msg, m.keys.Select):
		if _, ok := m.selected[m.cursor]; ok {
			delete(m.selected, m.cursor)
		} else {
			m.selected[m.cursor] = struct{}{}
		}
		m.engine.RefreshMarkersOnly()
	case key.Matches(msg, m.keys.Edit):
		m.editing = !m.editing
		m.engine.RefreshMarkersOnly()
	case key.Matches(msg, m.keys.Wider):
		m.resizeColumn(2)
	case key.Matches(msg, m.keys.Narrower):
		m.resizeColumn(-2)
	case key.Matches(msg, m.keys.MoveColumnLeft):
		m.moveColumn(-1)
	case key.Matches(msg, m.keys.MoveColumnRight):
		m.moveColumn(1)
	case key.Matches(msg, m.keys.HideColumn):
		m.hideColumn()
	case key.Matches(msg, m.keys.ShowColumns):
		m.showColumns()
	case key.Matches(msg, m.keys.Refresh):
		m.reload()
	case key.Matches(msg, m.keys.ToggleStatus):
		m.showStatus = !m.showStatus
		w, h := m.bodySize()
		m.record(m.engine.SetViewport(w, h))
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollTo(m.scrollTop-m.cfg.WheelStep, m.scrollLeft)
	case tea.MouseButtonWheelDown:
		m.scrollTo(m.scrollTop+m.cfg.WheelStep, m.scrollLeft)
	case tea.MouseButtonWheelLeft:
		m.scrollTo(m.scrollTop, m.scrollLeft-m.cfg.WheelStep)
	case tea.MouseButtonWheelRight:
		m.scrollTo(m.scrollTop, m.scrollLeft+m.cfg.WheelStep)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return
		}
		if cell, ok := m.cellAt(msg); ok {
			clear(m.selected)
			m.selected[cell] = struct{}{}
			m.editing = false
			m.moveCursor(cell.Row, cell.Col)
		}
	}
}

// cellAt finds the clicked cell through its zone, falling back to the
// row and column offsets under the pointer.
func (m *Model) cellAt(msg tea.MouseMsg) (grid.Cell, bool) {
	rng, ok := m.engine.LastRange()
	if !ok {
		return grid.Cell{}, false
	}
	var found grid.Cell
	hit := false
	rng.Each(func(row, col int) {
		if hit {
			return
		}
		if z := zone.Get(m.cellZone(row, col)); z != nil && z.InBounds(msg) {
			found, hit = grid.Cell{Row: row, Col: col}, true
		}
	})
	if hit {
		return found, true
	}

	_, bodyH := m.bodySize()
	y := msg.Y - 1 // header
	if y < 0 || y >= bodyH || msg.X < 0 || msg.X >= m.width {
		return grid.Cell{}, false
	}
	scroll := m.engine.ScrollPosition()
	rows, cols := m.engine.Rows(), m.engine.Cols()
	row := rows.IndexAtOffset(scroll.Top + y)
	col := cols.IndexAtOffset(scroll.Left + msg.X)
	if row >= rows.Count() || col >= cols.Count() {
		return grid.Cell{}, false
	}
	return grid.Cell{Row: row, Col: col}, true
}

func (m *Model) cellZone(row, col int) string {
	return fmt.Sprintf("%scell-%d-%d", m.zonePrefix, row, col)
}

// moveCursor clamps the cursor to the grid and scrolls it into view.
func (m *Model) moveCursor(row, col int) {
	rows, cols := m.engine.Rows(), m.engine.Cols()
	if rows.Count() == 0 || cols.Count() == 0 {
		return
	}
	m.cursor = grid.Cell{
		Row: max(0, min(row, rows.Count()-1)),
		Col: max(0, min(col, cols.Count()-1)),
	}
	m.engine.RefreshMarkersOnly()

	w, h := m.bodySize()
	top, left := m.scrollTop, m.scrollLeft
	y, _ := rows.Offset(m.cursor.Row)
	rh, _ := rows.Size(m.cursor.Row)
	if y < top || rh > h {
		top = y
	} else if y+rh > top+h {
		top = y + rh - h
	}
	x, _ := cols.Offset(m.cursor.Col)
	cw, _ := cols.Size(m.cursor.Col)
	if x < left || cw > w {
		left = x
	} else if x+cw > left+w {
		left = x + cw - w
	}
	m.scrollTo(top, left)
}

// page moves the cursor by one viewport height.
func (m *Model) page(dir int) {
	rows := m.engine.Rows()
	_, h := m.bodySize()
	y, _ := rows.Offset(m.cursor.Row)
	m.moveCursor(rows.IndexAtOffset(max(y+dir*h, 0)), m.cursor.Col)
}

// scrollTo clamps the position to the content and hands it to the engine.
func (m *Model) scrollTo(top, left int) {
	w, h := m.bodySize()
	top = max(0, min(top, m.engine.Rows().Total()-h))
	left = max(0, min(left, m.engine.Cols().Total()-w))
	if !m.started {
		m.scrollTop, m.scrollLeft = top, left
		return
	}
	if top == m.scrollTop && left == m.scrollLeft {
		return
	}
	m.scrollTop, m.scrollLeft = top, left
	m.record(m.engine.Scroll(top, left))
}

func (m *Model) currentColumn() (grid.Column, bool) {
	visible := m.engine.Columns()
	if m.cursor.Col < 0 || m.cursor.Col >= len(visible) {
		return grid.Column{}, false
	}
	return visible[m.cursor.Col], true
}

func (m *Model) resizeColumn(delta int) {
	col, ok := m.currentColumn()
	if !ok {
		return
	}
	m.record(m.columns.SetWidth(col.ID, max(col.Width+delta, 1)))
}

func (m *Model) moveColumn(dir int) {
	col, ok := m.currentColumn()
	if !ok {
		return
	}
	all := m.columns.All()
	for i, c := range all {
		if c.ID != col.ID {
			continue
		}
		to := i + dir
		if to < 0 || to >= len(all) {
			return
		}
		m.record(m.columns.Move(col.ID, to))
		m.cursor.Col = max(0, min(m.cursor.Col+dir, len(m.engine.Columns())-1))
		return
	}
}

func (m *Model) hideColumn() {
	col, ok := m.currentColumn()
	if !ok || len(m.engine.Columns()) <= 1 {
		return
	}
	m.record(m.columns.SetVisible(col.ID, false))
}

func (m *Model) showColumns() {
	for _, c := range m.columns.All() {
		if m.columns.Hidden(c.ID) {
			m.record(m.columns.SetVisible(c.ID, true))
		}
	}
}

func (m *Model) handleColumnChange(ch grid.ColumnChange) {
	log.Debug(log.CatUI, "column change", "type", ch.Type, "column", ch.ColumnID)
	m.record(m.engine.HandleColumnChange(ch))
	if n := len(m.engine.Columns()); m.cursor.Col >= n {
		m.cursor.Col = max(n-1, 0)
	}
	m.scrollTo(m.scrollTop, m.scrollLeft)
}

// reload re-reads the row source when it supports it, then repaints.
func (m *Model) reload() {
	if r, ok := m.cfg.Rows.(Reloader); ok {
		if err := r.Reload(m.ctx); err != nil {
			m.record(err)
			return
		}
	}
	if n := m.cfg.Rows.Len(); n != m.engine.Rows().Count() {
		rows, err := dimension.NewUniform(n, m.cfg.RowHeight)
		if err != nil {
			m.record(err)
			return
		}
		m.record(m.engine.SetRows(rows))
		m.cursor.Row = max(0, min(m.cursor.Row, n-1))
		m.scrollTo(m.scrollTop, m.scrollLeft)
		return
	}
	m.record(m.engine.Refresh())
}

func (m *Model) reconfigure() {
	if m.cfg.ReloadTuning == nil {
		return
	}
	t, err := m.cfg.ReloadTuning()
	if err != nil {
		log.ErrorErr(log.CatConfig, "Failed to reload config", err)
		m.record(err)
		return
	}
	m.record(m.engine.Reconfigure(t))
	log.Info(log.CatConfig, "Applied config reload", "overscan_rows", t.OverscanRows, "cache", t.CacheEnabled)
}

// record keeps err for the status line. Nil clears a previous error.
func (m *Model) record(err error) {
	if err != nil {
		log.ErrorErr(log.CatUI, "grid operation failed", err)
	}
	m.err = err
}
