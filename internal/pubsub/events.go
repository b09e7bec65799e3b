// Package pubsub provides typed publish/subscribe used to notify the grid
// and the terminal surface of column layout changes.
package pubsub

import (
	"context"
	"time"
)

// EventType names what changed.
type EventType string

const (
	ColumnWidthChanged      EventType = "column.width"
	ColumnsReordered        EventType = "column.reorder"
	ColumnVisibilityChanged EventType = "column.visibility"
)

// Event is one published change.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out event channels scoped to a context.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

var (
	_ Subscriber[int] = (*Broker[int])(nil)
	_ Publisher[int]  = (*Broker[int])(nil)
)
