package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var ran []string

	a := s.RequestFrame(func() { ran = append(ran, "a") })
	b := s.RequestFrame(func() { ran = append(ran, "b") })
	s.RequestFrame(func() {
		ran = append(ran, "c")
		s.RequestFrame(func() { ran = append(ran, "next") })
	})
	require.NotZero(t, a)
	require.NotEqual(t, a, b)

	s.CancelFrame(b)
	require.Equal(t, 2, s.Pending())
	require.Equal(t, 2, s.Flush())
	require.Equal(t, []string{"a", "c"}, ran)

	require.Equal(t, 1, s.Pending(), "frames requested during a flush wait for the next one")
	s.Flush()
	require.Equal(t, []string{"a", "c", "next"}, ran)
	require.Zero(t, s.Flush())
}

func TestTickScheduler(t *testing.T) {
	s := NewTickScheduler(time.Millisecond)
	require.Nil(t, s.Cmd(), "no tick without queued frames")

	ran := 0
	s.RequestFrame(func() { ran++ })
	cmd := s.Cmd()
	require.NotNil(t, cmd)
	require.Nil(t, s.Cmd(), "one tick in flight at a time")

	msg := cmd()
	require.IsType(t, FrameMsg{}, msg)

	s.RequestFrame(func() {
		ran++
		s.RequestFrame(func() { ran++ })
	})
	follow := s.Flush()
	require.Equal(t, 2, ran)
	require.NotNil(t, follow, "frames requested while flushing get a new tick")
	require.Equal(t, 1, s.Pending())

	require.Nil(t, s.Flush())
	require.Equal(t, 3, ran)
}

func TestTickScheduler_DefaultInterval(t *testing.T) {
	s := NewTickScheduler(0)
	require.Equal(t, DefaultFrameInterval, s.interval)
}
