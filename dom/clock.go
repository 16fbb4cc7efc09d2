package dom

import (
	"slices"
	"sync"
	"time"
)

// Clock schedules timer callbacks for a document. Callbacks always run on
// the document's goroutine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	// Stop cancels the timer, reporting whether it was still pending.
	Stop() bool
}

// SystemClock uses wall time and posts due callbacks to a Loop.
type SystemClock struct {
	loop *Loop
}

func NewSystemClock(loop *Loop) *SystemClock {
	return &SystemClock{loop: loop}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &systemTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.loop.Post(func() {
			if t.fire() {
				fn()
			}
		})
	})
	return t
}

// systemTimer makes Stop authoritative even after the callback was posted
// but before the loop ran it.
type systemTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *systemTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.fired = true
	return true
}

func (t *systemTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// ManualClock only moves when told to. Due callbacks run synchronously
// inside Advance, in deadline order.
type ManualClock struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	seq   int
	fn    func()
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	c := t.clock
	i := slices.Index(c.timers, t)
	if i < 0 {
		return false
	}
	c.timers = slices.Delete(c.timers, i, i+1)
	return true
}

// Advance moves time forward by d, firing every timer that falls due,
// including timers scheduled by callbacks within the window.
func (c *ManualClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		next := c.next(end)
		if next == nil {
			break
		}
		next.Stop()
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fn()
	}
	c.now = end
}

func (c *ManualClock) next(end time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range c.timers {
		if t.at.After(end) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Pending reports how many timers have not fired yet.
func (c *ManualClock) Pending() int {
	return len(c.timers)
}
