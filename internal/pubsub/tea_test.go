package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_DeliversEventAsMsg(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx)

	broker.Publish(ColumnVisibilityChanged, "notes")

	msg := ListenCmd(ctx, ch)()
	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "notes", event.Payload)
	require.Equal(t, ColumnVisibilityChanged, event.Type)
}

func TestListenCmd_NilWhenCancelledOrClosed(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	require.Nil(t, ListenCmd(ctx, ch)())

	closed := make(chan Event[string])
	close(closed)
	require.Nil(t, ListenCmd(context.Background(), closed)())
}

func TestContinuousListener_ReceivesInOrder(t *testing.T) {
	broker := NewBroker[widthChange]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := NewContinuousListener[widthChange](ctx, broker)

	broker.Publish(ColumnWidthChanged, widthChange{ColumnID: "a", Width: 10})
	broker.Publish(ColumnsReordered, widthChange{ColumnID: "b"})
	broker.Publish(ColumnVisibilityChanged, widthChange{ColumnID: "c"})

	want := []EventType{ColumnWidthChanged, ColumnsReordered, ColumnVisibilityChanged}
	for i, typ := range want {
		event, ok := listener.Listen()().(Event[widthChange])
		require.True(t, ok, "event %d", i)
		require.Equal(t, typ, event.Type)
	}
}
