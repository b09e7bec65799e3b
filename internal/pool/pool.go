// Package pool recycles render targets across frames.
//
// Handles are keyed by cell. Acquire returns the handle already bound to a
// cell when there is one, otherwise reuses an idle handle or allocates a new
// one. Handles released beyond the ceiling are discarded rather than kept
// idle, so retained memory is bounded by the ceiling.
package pool

import (
	"slices"

	"github.com/zjrosen/vgrid/internal/log"
)

// DefaultCeiling bounds retained handles when Options.Ceiling is unset.
const DefaultCeiling = 4096

// Options configures a Pool.
type Options struct {
	// Ceiling is the maximum number of handles retained (active + idle).
	Ceiling int

	// Prewarm allocates this many idle handles up front, capped at Ceiling.
	Prewarm int

	// OnRelease is called with a handle just before it is cleared and
	// unbound from its cell.
	OnRelease func(h *Handle)
}

// Stats reports pool occupancy.
type Stats struct {
	Active    int    // handles bound to a cell
	Idle      int    // handles waiting for reuse
	Total     int    // Active + Idle
	Allocated uint64 // handles created over the pool's lifetime
	Discarded uint64 // handles dropped because the ceiling was reached
}

// Pool hands out handles by cell key. It is owned by one engine and is not
// safe for concurrent use.
type Pool struct {
	ceiling   int
	onRelease func(*Handle)

	active map[CellKey]*Handle
	idle   []*Handle

	allocated uint64
	discarded uint64
}

// New creates a pool.
func New(opts Options) *Pool {
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	p := &Pool{
		ceiling:   ceiling,
		onRelease: opts.OnRelease,
		active:    make(map[CellKey]*Handle),
	}
	for i := 0; i < min(opts.Prewarm, ceiling); i++ {
		p.idle = append(p.idle, p.alloc())
	}
	return p
}

func (p *Pool) alloc() *Handle {
	p.allocated++
	return newHandle()
}

// Ceiling returns the configured retention bound.
func (p *Pool) Ceiling() int { return p.ceiling }

// Acquire returns the handle bound to key, binding an idle or new handle if
// none is. Acquire never fails: every visible cell gets a handle even when the
// active set exceeds the ceiling.
func (p *Pool) Acquire(key CellKey) *Handle {
	if h, ok := p.active[key]; ok {
		return h
	}
	var h *Handle
	if n := len(p.idle); n > 0 {
		h = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	} else {
		h = p.alloc()
		if len(p.active) >= p.ceiling {
			log.Debug(log.CatPool, "active handles exceed ceiling", "active", len(p.active)+1, "ceiling", p.ceiling)
		}
	}
	h.key = key
	h.state = StateActive
	p.active[key] = h
	return h
}

// Active returns the handle bound to key, if any.
func (p *Pool) Active(key CellKey) (*Handle, bool) {
	h, ok := p.active[key]
	return h, ok
}

// Release unbinds the handle for key, clears its markers and content, and
// returns it to the idle list. It is a no-op for unbound keys.
func (p *Pool) Release(key CellKey) {
	h, ok := p.active[key]
	if !ok {
		return
	}
	delete(p.active, key)
	if p.onRelease != nil {
		p.onRelease(h)
	}
	h.reset()
	if len(p.active)+len(p.idle) >= p.ceiling {
		p.discarded++
		return
	}
	p.idle = append(p.idle, h)
}

// ReleaseExcept releases every active handle whose key is not in keep and
// returns how many were released.
func (p *Pool) ReleaseExcept(keep map[CellKey]struct{}) int {
	var drop []CellKey
	for key := range p.active {
		if _, ok := keep[key]; !ok {
			drop = append(drop, key)
		}
	}
	// Deterministic order so recycled handles are predictable.
	slices.SortFunc(drop, compareKeys)
	for _, key := range drop {
		p.Release(key)
	}
	return len(drop)
}

// ReleaseAll releases every active handle.
func (p *Pool) ReleaseAll() int {
	return p.ReleaseExcept(nil)
}

// ActiveHandles returns the active handles in row-major order.
func (p *Pool) ActiveHandles() []*Handle {
	out := make([]*Handle, 0, len(p.active))
	for _, h := range p.active {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *Handle) int { return compareKeys(a.key, b.key) })
	return out
}

// Stats returns current occupancy.
func (p *Pool) Stats() Stats {
	return Stats{
		Active:    len(p.active),
		Idle:      len(p.idle),
		Total:     len(p.active) + len(p.idle),
		Allocated: p.allocated,
		Discarded: p.discarded,
	}
}

// Clear releases all active handles and drops the idle list.
func (p *Pool) Clear() {
	p.ReleaseAll()
	clear(p.idle)
	p.idle = p.idle[:0]
}

func compareKeys(a, b CellKey) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
