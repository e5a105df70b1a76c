package assembly

import (
	"sort"
	"time"
)

type timer struct {
	at  time.Duration
	seq int
	fn  func()
}

// Clock is the session's time source, advanced by render ticks.
// Timers are one-shot and cannot be cancelled: callbacks check whether their
// owner is still alive.
type Clock struct {
	now    time.Duration
	seq    int
	timers []timer
}

func (c *Clock) Now() time.Duration {
	return c.now
}

// After schedules fn to run once, d after now.
func (c *Clock) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	c.seq++
	c.timers = append(c.timers, timer{at: c.now + d, seq: c.seq, fn: fn})
}

func (c *Clock) Pending() int {
	return len(c.timers)
}

// Advance moves time forward by dt and runs the timers that came due, in
// schedule order. Timers scheduled by a callback run in the same call if due.
func (c *Clock) Advance(dt time.Duration) {
	if dt > 0 {
		c.now += dt
	}
	for {
		idx := -1
		for i, t := range c.timers {
			if t.at > c.now {
				continue
			}
			if idx < 0 || t.at < c.timers[idx].at || (t.at == c.timers[idx].at && t.seq < c.timers[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			return
		}
		t := c.timers[idx]
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		t.fn()
	}
}

// Drop discards every pending timer.
func (c *Clock) Drop() {
	c.timers = nil
}

// due lists the pending deadlines, sorted. For tests and debugging.
func (c *Clock) due() []time.Duration {
	out := make([]time.Duration, 0, len(c.timers))
	for _, t := range c.timers {
		out = append(out, t.at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
