package viewport

import "time"

// velocityWindow is how far back samples are considered.
const velocityWindow = 100 * time.Millisecond

type sample struct {
	at  time.Time
	pos Scroll
}

// Velocity tracks recent scroll positions and reports scroll speed in
// pixels per second along the dominant axis.
type Velocity struct {
	now     func() time.Time
	samples []sample
}

// NewVelocity creates a tracker. A nil clock uses time.Now.
func NewVelocity(clock func() time.Time) *Velocity {
	if clock == nil {
		clock = time.Now
	}
	return &Velocity{now: clock}
}

// Record adds a scroll sample and returns the current speed.
func (v *Velocity) Record(pos Scroll) float64 {
	now := v.now()
	v.samples = append(v.samples, sample{at: now, pos: pos})
	v.prune(now)
	return v.speed()
}

// Speed returns the current speed without recording a sample.
func (v *Velocity) Speed() float64 {
	v.prune(v.now())
	return v.speed()
}

// Reset drops every sample.
func (v *Velocity) Reset() {
	v.samples = v.samples[:0]
}

func (v *Velocity) prune(now time.Time) {
	cut := 0
	for cut < len(v.samples)-1 && now.Sub(v.samples[cut].at) > velocityWindow {
		cut++
	}
	if cut > 0 {
		v.samples = append(v.samples[:0], v.samples[cut:]...)
	}
}

func (v *Velocity) speed() float64 {
	if len(v.samples) < 2 {
		return 0
	}
	first, last := v.samples[0], v.samples[len(v.samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		// Two samples in the same instant: treat as a jump.
		if first.pos == last.pos {
			return 0
		}
		dt = time.Millisecond.Seconds()
	}
	dy := abs(last.pos.Top - first.pos.Top)
	dx := abs(last.pos.Left - first.pos.Left)
	return float64(max(dx, dy)) / dt
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
