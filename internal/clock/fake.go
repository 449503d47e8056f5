package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance or Set is
// called. It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
	changed *sync.Cond
}

type fakeWaiter struct {
	clock    *FakeClock
	deadline time.Time
	channel  chan time.Time
}

func (w *fakeWaiter) C() <-chan time.Time { return w.channel }

func (w *fakeWaiter) Stop() bool {
	c := w.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, pending := range c.waiters {
		if pending == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			c.changed.Broadcast()
			return true
		}
	}
	return false
}

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After registers a waiter that fires when the clock is advanced past
// now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	return c.NewTimer(d).C()
}

// NewTimer registers a waiter like After. A stopped timer no longer
// counts toward Waiters.
func (c *FakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &fakeWaiter{clock: c, deadline: c.current.Add(d), channel: make(chan time.Time, 1)}
	if d <= 0 {
		w.channel <- c.current
		return w
	}
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
	return w
}

// Advance moves the clock forward and fires every waiter whose
// deadline has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.current) {
			w.channel <- c.current
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
	c.changed.Broadcast()
}

// Set jumps the clock to t without firing waiters. Use it to model
// wall-clock gaps between events.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// WaitForWaiters blocks until at least n waiters are pending. Waiters
// from After cannot be cancelled and stay pending until they fire.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.changed.Wait()
	}
}

// Waiters returns the number of pending waiters.
func (c *FakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
