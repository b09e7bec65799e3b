package grid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vgrid/internal/pubsub"
	"github.com/zjrosen/vgrid/internal/render"
)

func nextChange(t *testing.T, ch <-chan pubsub.Event[ColumnChange]) pubsub.Event[ColumnChange] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for column change")
	}
	return pubsub.Event[ColumnChange]{}
}

func ids(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}
	return out
}

func TestNewStaticColumns_Fields(t *testing.T) {
	s := NewStaticColumns(Column{ID: "a"}, Column{ID: "b"}, Column{ID: "c"})
	defer s.Close()
	for i, c := range s.All() {
		require.Equal(t, i, c.Field, "fields default to position")
	}

	explicit := NewStaticColumns(Column{ID: "a", Field: 2}, Column{ID: "b", Field: 0})
	defer explicit.Close()
	require.Equal(t, []int{2, 0}, []int{explicit.All()[0].Field, explicit.All()[1].Field})
}

func TestStaticColumns_Mutations(t *testing.T) {
	s := NewStaticColumns(Column{ID: "a", Width: 3}, Column{ID: "b", Width: 4}, Column{ID: "c", Width: 5})
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx)

	require.NoError(t, s.SetWidth("b", 9))
	ev := nextChange(t, ch)
	require.Equal(t, pubsub.ColumnWidthChanged, ev.Type)
	require.Equal(t, ColumnChange{Type: ChangeWidth, ColumnID: "b"}, ev.Payload)
	require.Equal(t, 9, s.All()[1].Width)

	require.NoError(t, s.SetVisible("a", false))
	ev = nextChange(t, ch)
	require.Equal(t, pubsub.ColumnVisibilityChanged, ev.Type)
	require.Equal(t, []string{"b", "c"}, ids(s.OrderedVisibleColumns()))
	require.Equal(t, []string{"a", "b", "c"}, ids(s.All()))
	require.True(t, s.Hidden("a"))
	require.False(t, s.Hidden("b"))
	require.False(t, s.Hidden("zz"))

	require.NoError(t, s.Move("c", 0))
	ev = nextChange(t, ch)
	require.Equal(t, pubsub.ColumnsReordered, ev.Type)
	require.Equal(t, []string{"c", "a", "b"}, ids(s.All()))

	require.NoError(t, s.Move("c", 99))
	nextChange(t, ch)
	require.Equal(t, []string{"a", "b", "c"}, ids(s.All()), "targets clamp to the last position")

	require.NoError(t, s.SetRenderer("a", render.Named("wrap")))
	ev = nextChange(t, ch)
	require.Equal(t, ChangeWidth, ev.Payload.Type)
	require.Equal(t, "named:wrap", s.All()[0].Renderer.String())
}

func TestStaticColumns_Errors(t *testing.T) {
	s := NewStaticColumns(Column{ID: "a"})
	defer s.Close()
	require.ErrorIs(t, s.SetWidth("zz", 1), ErrUnknownColumn)
	require.ErrorIs(t, s.SetVisible("zz", true), ErrUnknownColumn)
	require.ErrorIs(t, s.Move("zz", 0), ErrUnknownColumn)
	require.Error(t, s.SetWidth("a", -1))
}

func TestChangeType_String(t *testing.T) {
	require.Equal(t, "width", ChangeWidth.String())
	require.Equal(t, "reorder", ChangeReorder.String())
	require.Equal(t, "visibility", ChangeVisibility.String())
	require.Equal(t, "ChangeType(7)", ChangeType(7).String())
}
