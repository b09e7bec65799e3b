package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/vgrid/internal/pubsub"
	"github.com/zjrosen/vgrid/internal/render"
)

// ChangeType classifies a column change.
type ChangeType int

const (
	ChangeWidth ChangeType = iota
	ChangeReorder
	ChangeVisibility
)

func (c ChangeType) String() string {
	switch c {
	case ChangeWidth:
		return "width"
	case ChangeReorder:
		return "reorder"
	case ChangeVisibility:
		return "visibility"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(c))
	}
}

// eventType maps a change to the pubsub event it is published as.
func (c ChangeType) eventType() pubsub.EventType {
	switch c {
	case ChangeReorder:
		return pubsub.ColumnsReordered
	case ChangeVisibility:
		return pubsub.ColumnVisibilityChanged
	default:
		return pubsub.ColumnWidthChanged
	}
}

// ColumnChange describes one change to the column set.
type ColumnChange struct {
	Type     ChangeType
	ColumnID string
}

// Column is one visible column as the engine sees it.
type Column struct {
	ID    string
	Title string
	Width int

	// Field is the data column index passed to the value source.
	Field int

	Renderer render.Ref

	// AutoHeight makes row heights follow this column's rendered content.
	AutoHeight bool
}

// ColumnSource supplies the visible columns in display order.
type ColumnSource interface {
	OrderedVisibleColumns() []Column
}

type staticColumn struct {
	Column
	hidden bool
}

// StaticColumns is an in-memory ColumnSource. Mutations publish a
// ColumnChange on its broker.
type StaticColumns struct {
	mu     sync.RWMutex
	cols   []staticColumn
	broker *pubsub.Broker[ColumnChange]
}

// NewStaticColumns creates a source over cols, all visible. Field defaults
// to the column's position when unset for every column.
func NewStaticColumns(cols ...Column) *StaticColumns {
	s := &StaticColumns{broker: pubsub.NewBroker[ColumnChange]()}
	anyField := false
	for _, c := range cols {
		anyField = anyField || c.Field != 0
	}
	for i, c := range cols {
		if !anyField {
			c.Field = i
		}
		s.cols = append(s.cols, staticColumn{Column: c})
	}
	return s
}

// OrderedVisibleColumns returns the visible columns in display order.
func (s *StaticColumns) OrderedVisibleColumns() []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Column, 0, len(s.cols))
	for _, c := range s.cols {
		if !c.hidden {
			out = append(out, c.Column)
		}
	}
	return out
}

// All returns every column, hidden ones included, in display order.
func (s *StaticColumns) All() []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Column, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Column
	}
	return out
}

// Hidden reports whether the column with id is hidden. Unknown ids report
// false.
func (s *StaticColumns) Hidden(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cols {
		if c.ID == id {
			return c.hidden
		}
	}
	return false
}

// Subscribe returns a channel of column changes, closed when ctx ends.
func (s *StaticColumns) Subscribe(ctx context.Context) <-chan pubsub.Event[ColumnChange] {
	return s.broker.Subscribe(ctx)
}

// Broker exposes the change broker for Bubble Tea listeners.
func (s *StaticColumns) Broker() *pubsub.Broker[ColumnChange] { return s.broker }

// Close shuts down the change broker.
func (s *StaticColumns) Close() { s.broker.Close() }

// SetWidth resizes a column.
func (s *StaticColumns) SetWidth(id string, width int) error {
	if width < 0 {
		return fmt.Errorf("column %q: negative width %d", id, width)
	}
	if err := s.mutate(id, func(i int) { s.cols[i].Width = width }); err != nil {
		return err
	}
	s.publish(ColumnChange{Type: ChangeWidth, ColumnID: id})
	return nil
}

// SetVisible shows or hides a column.
func (s *StaticColumns) SetVisible(id string, visible bool) error {
	if err := s.mutate(id, func(i int) { s.cols[i].hidden = !visible }); err != nil {
		return err
	}
	s.publish(ColumnChange{Type: ChangeVisibility, ColumnID: id})
	return nil
}

// Move places a column at position to among all columns.
func (s *StaticColumns) Move(id string, to int) error {
	err := s.mutate(id, func(i int) {
		to = max(0, min(to, len(s.cols)-1))
		c := s.cols[i]
		s.cols = append(s.cols[:i], s.cols[i+1:]...)
		s.cols = append(s.cols[:to], append([]staticColumn{c}, s.cols[to:]...)...)
	})
	if err != nil {
		return err
	}
	s.publish(ColumnChange{Type: ChangeReorder, ColumnID: id})
	return nil
}

// SetRenderer changes a column's renderer. Published as a width change so
// listeners repaint the column.
func (s *StaticColumns) SetRenderer(id string, ref render.Ref) error {
	if err := s.mutate(id, func(i int) { s.cols[i].Renderer = ref }); err != nil {
		return err
	}
	s.publish(ColumnChange{Type: ChangeWidth, ColumnID: id})
	return nil
}

func (s *StaticColumns) mutate(id string, fn func(i int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cols {
		if s.cols[i].ID == id {
			fn(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownColumn, id)
}

func (s *StaticColumns) publish(ch ColumnChange) {
	s.broker.Publish(ch.Type.eventType(), ch)
}
