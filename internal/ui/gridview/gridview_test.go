package gridview

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/pubsub"
	"github.com/zjrosen/vgrid/internal/render"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type fakeRows struct {
	n       int
	reloads int
}

func (f *fakeRows) Value(row, col int) any {
	if col == 0 {
		return fmt.Sprintf("row%d", row)
	}
	return row * 10
}

func (f *fakeRows) Len() int { return f.n }

func (f *fakeRows) Reload(context.Context) error {
	f.reloads++
	return nil
}

func newTestModel(t *testing.T, mutate func(*Config)) (*Model, *fakeRows) {
	t.Helper()
	rows := &fakeRows{n: 100}
	cols := grid.NewStaticColumns(
		grid.Column{ID: "name", Title: "Name", Width: 8},
		grid.Column{ID: "n", Title: "N", Width: 6, Renderer: render.Named("number")},
		grid.Column{ID: "extra", Title: "Extra", Width: 8},
	)
	t.Cleanup(cols.Close)
	cfg := Config{
		Columns:       cols,
		Rows:          rows,
		Registry:      render.NewDefaultRegistry(render.MarkdownOptions{Style: "ascii"}),
		Tuning:        grid.Tuning{MinRowHeight: 1, CacheCapacity: 100, CacheEnabled: true},
		ShowStatusBar: true,
		WheelStep:     3,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, rows
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msgs ...tea.Msg) {
	for _, msg := range msgs {
		_, _ = m.Update(msg)
	}
}

// flush delivers every queued frame.
func flush(m *Model) {
	for m.sched.Pending() > 0 {
		send(m, grid.FrameMsg{At: time.Now()})
	}
}

func TestNew_Requires(t *testing.T) {
	_, err := New(Config{Rows: &fakeRows{}})
	require.Error(t, err)
	_, err = New(Config{Columns: grid.NewStaticColumns()})
	require.Error(t, err)
}

func TestView_FirstFrame(t *testing.T) {
	m, _ := newTestModel(t, nil)
	require.Empty(t, m.View(), "no size yet")

	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})
	require.Equal(t, 4, m.Engine().Viewport().Height, "header and status take a line each")

	view := m.View()
	require.Contains(t, view, "Name")
	require.Contains(t, view, "row0")
	require.Contains(t, view, "row3")
	require.NotContains(t, view, "row4")
	require.Contains(t, view, "row 1/100")

	rng, ok := m.Engine().LastRange()
	require.True(t, ok)
	require.Equal(t, 0, rng.StartRow)
}

func TestKeys_CursorScrollsIntoView(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	for i := 0; i < 5; i++ {
		send(m, keyMsg("j"))
	}
	flush(m)

	require.Equal(t, grid.Cell{Row: 5, Col: 0}, m.Cursor())
	require.Equal(t, 2, m.Engine().ScrollPosition().Top)
	require.Contains(t, m.View(), "row5")
	require.NotContains(t, m.View(), "row1 ")

	send(m, keyMsg("G"))
	flush(m)
	require.Equal(t, 99, m.Cursor().Row)
	require.Equal(t, 96, m.Engine().ScrollPosition().Top)

	send(m, keyMsg("g"))
	flush(m)
	require.Equal(t, 0, m.Cursor().Row)
	require.Equal(t, 0, m.Engine().ScrollPosition().Top)

	send(m, keyMsg("k"), keyMsg("h"))
	require.Equal(t, grid.Cell{}, m.Cursor(), "cursor is clamped")
}

func TestKeys_PageDown(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	send(m, tea.KeyMsg{Type: tea.KeyPgDown})
	flush(m)
	require.Equal(t, 4, m.Cursor().Row)

	send(m, tea.KeyMsg{Type: tea.KeyPgUp})
	flush(m)
	require.Equal(t, 0, m.Cursor().Row)
}

func TestKeys_HorizontalScroll(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 12, Height: 6})

	send(m, keyMsg("l"), keyMsg("l"))
	flush(m)
	require.Equal(t, 2, m.Cursor().Col)
	// Column 2 spans [14, 22); the viewport is 12 wide.
	require.Equal(t, 10, m.Engine().ScrollPosition().Left)
	require.Contains(t, m.View(), "Extra")
}

func TestKeys_SelectionMarkers(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	h, ok := m.Engine().Handle(0, 0)
	require.True(t, ok)
	require.True(t, h.HasMarker(grid.MarkerActive))
	require.False(t, h.HasMarker(grid.MarkerSelected))

	send(m, keyMsg(" "))
	require.True(t, m.Selected(grid.Cell{}))
	require.True(t, h.HasMarker(grid.MarkerSelected))

	send(m, keyMsg("j"))
	require.False(t, h.HasMarker(grid.MarkerActive), "active marker follows the cursor")
	next, _ := m.Engine().Handle(1, 0)
	require.True(t, next.HasMarker(grid.MarkerActive))

	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, next.HasMarker(grid.MarkerEditing))

	send(m, keyMsg("esc"))
	require.False(t, h.HasMarker(grid.MarkerSelected))
	require.False(t, next.HasMarker(grid.MarkerEditing))
}

func TestColumns_ResizeHideShow(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 30, Height: 6})

	send(m, keyMsg("+"))
	send(m, pubsub.Event[grid.ColumnChange]{Payload: grid.ColumnChange{Type: grid.ChangeWidth, ColumnID: "name"}})
	require.Equal(t, 10, m.Engine().Columns()[0].Width)

	send(m, keyMsg("x"))
	send(m, pubsub.Event[grid.ColumnChange]{Payload: grid.ColumnChange{Type: grid.ChangeVisibility, ColumnID: "name"}})
	require.Len(t, m.Engine().Columns(), 2)
	require.NotContains(t, m.View(), "row0")

	send(m, keyMsg("X"))
	send(m, pubsub.Event[grid.ColumnChange]{Payload: grid.ColumnChange{Type: grid.ChangeVisibility, ColumnID: "name"}})
	require.Len(t, m.Engine().Columns(), 3)
	require.Contains(t, m.View(), "row0")
}

func TestColumns_Move(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 30, Height: 6})

	send(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	send(m, pubsub.Event[grid.ColumnChange]{Payload: grid.ColumnChange{Type: grid.ChangeReorder, ColumnID: "name"}})
	require.Equal(t, "n", m.Engine().Columns()[0].ID)
	require.Equal(t, "name", m.Engine().Columns()[1].ID)
	require.Equal(t, 1, m.Cursor().Col, "cursor follows the moved column")
}

func TestMouse_WheelScrolls(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	send(m, tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	flush(m)
	require.Equal(t, 3, m.Engine().ScrollPosition().Top)

	send(m, tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	send(m, tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	flush(m)
	require.Equal(t, 0, m.Engine().ScrollPosition().Top, "clamped at the top")
}

func TestMouse_ClickSelects(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 30, Height: 6})

	// Line 0 is the header, so screen line 2 is row 1. Column 1 spans [8, 14).
	send(m, tea.MouseMsg{X: 9, Y: 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	require.Equal(t, grid.Cell{Row: 1, Col: 1}, m.Cursor())
	require.True(t, m.Selected(grid.Cell{Row: 1, Col: 1}))

	send(m, tea.MouseMsg{X: 9, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	require.Equal(t, grid.Cell{Row: 1, Col: 1}, m.Cursor(), "header clicks are ignored")
}

func TestReload_RowCountChange(t *testing.T) {
	m, rows := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	rows.n = 120
	send(m, keyMsg("r"))
	require.Equal(t, 1, rows.reloads)
	require.Equal(t, 120, m.Engine().Rows().Count())

	send(m, dataChangedMsg{})
	require.Equal(t, 2, rows.reloads)
	require.NoError(t, m.Err())
}

func TestConfigChanged_Reconfigures(t *testing.T) {
	m, _ := newTestModel(t, func(c *Config) {
		c.ReloadTuning = func() (grid.Tuning, error) {
			return grid.Tuning{OverscanRows: 5, MinRowHeight: 1, CacheCapacity: 50, CacheEnabled: true}, nil
		}
	})
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	send(m, configChangedMsg{})
	require.Equal(t, 5, m.Engine().Tuning().OverscanRows)
	require.Equal(t, 50, m.Engine().CacheStats().Capacity)
}

func TestToggleStatusAndHelp(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 40, Height: 6})

	send(m, keyMsg("w"))
	require.Equal(t, 5, m.Engine().Viewport().Height)
	require.NotContains(t, m.View(), "row 1/100")

	send(m, keyMsg("?"))
	require.Contains(t, m.View(), "move down")
	send(m, keyMsg("esc"))
	require.Contains(t, m.View(), "row0")
}

func TestClose_DestroysEngine(t *testing.T) {
	m, _ := newTestModel(t, nil)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 6})

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Engine().RenderVisible(0, 0), grid.ErrDestroyed)
}

func TestProgram_RendersAndQuits(t *testing.T) {
	m, _ := newTestModel(t, nil)
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(30, 8))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("row0")) && bytes.Contains(out, []byte("Name"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyMsg("j"))
	tm.Send(keyMsg("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(*Model)
	require.True(t, ok)
	require.Equal(t, 1, final.Cursor().Row)
}
