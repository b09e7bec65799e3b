package grid

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FrameID identifies a scheduled frame callback. The zero FrameID is never
// issued.
type FrameID uint64

// Scheduler defers work to the next rendering frame.
type Scheduler interface {
	// RequestFrame schedules fn for the next frame.
	RequestFrame(fn func()) FrameID
	// CancelFrame drops a callback that has not run yet.
	CancelFrame(id FrameID)
}

type frameQueue struct {
	mu     sync.Mutex
	nextID FrameID
	order  []FrameID
	fns    map[FrameID]func()
}

func (q *frameQueue) add(fn func()) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fns == nil {
		q.fns = make(map[FrameID]func())
	}
	q.nextID++
	q.fns[q.nextID] = fn
	q.order = append(q.order, q.nextID)
	return q.nextID
}

func (q *frameQueue) cancel(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.fns, id)
}

// take removes and returns every queued callback in request order.
func (q *frameQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []func()
	for _, id := range q.order {
		if fn, ok := q.fns[id]; ok {
			out = append(out, fn)
		}
	}
	q.order = q.order[:0]
	clear(q.fns)
	return out
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// ManualScheduler runs frame callbacks only when Flush is called. Tests use
// it to step frames deterministically.
type ManualScheduler struct {
	q frameQueue
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (s *ManualScheduler) RequestFrame(fn func()) FrameID { return s.q.add(fn) }

func (s *ManualScheduler) CancelFrame(id FrameID) { s.q.cancel(id) }

// Pending returns the number of queued callbacks.
func (s *ManualScheduler) Pending() int { return s.q.len() }

// Flush runs the callbacks queued so far and returns how many ran.
// Callbacks requested while flushing wait for the next Flush.
func (s *ManualScheduler) Flush() int {
	fns := s.q.take()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// FrameMsg tells a Bubble Tea model that a frame is due.
type FrameMsg struct {
	At time.Time
}

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// TickScheduler delivers frames through the Bubble Tea event loop. The model
// returns Cmd from Update after any call that may request a frame, and calls
// Flush when it receives a FrameMsg.
type TickScheduler struct {
	q        frameQueue
	interval time.Duration

	mu      sync.Mutex
	ticking bool
}

// NewTickScheduler creates a scheduler that ticks every interval.
func NewTickScheduler(interval time.Duration) *TickScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TickScheduler{interval: interval}
}

func (s *TickScheduler) RequestFrame(fn func()) FrameID { return s.q.add(fn) }

func (s *TickScheduler) CancelFrame(id FrameID) { s.q.cancel(id) }

// Pending returns the number of queued callbacks.
func (s *TickScheduler) Pending() int { return s.q.len() }

// Cmd returns a tick command when callbacks are queued and no tick is in
// flight, otherwise nil.
func (s *TickScheduler) Cmd() tea.Cmd {
	if s.q.len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticking {
		return nil
	}
	s.ticking = true
	return tea.Tick(s.interval, func(t time.Time) tea.Msg { return FrameMsg{At: t} })
}

// Flush runs the queued callbacks. It returns a follow-up tick command when
// the callbacks requested more frames.
func (s *TickScheduler) Flush() tea.Cmd {
	s.mu.Lock()
	s.ticking = false
	s.mu.Unlock()
	for _, fn := range s.q.take() {
		fn()
	}
	return s.Cmd()
}
