// Package clock abstracts time so the recorder and sync loop can be
// driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the agent depends on.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives once d has elapsed. If
	// d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
	// NewTimer is like After but can be stopped when the wait is
	// abandoned.
	NewTimer(d time.Duration) Timer
}

// Timer is a single pending wake-up.
type Timer interface {
	C() <-chan time.Time
	// Stop cancels the timer. It reports false if the timer already
	// fired or was stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }

func (r realTimer) Stop() bool { return r.t.Stop() }
