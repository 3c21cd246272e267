package core

import (
	"time"

	"github.com/benbjohnson/clock"
)

// RepeatingTimer is a deadline that is polled by the main loop rather than firing on its own.
// Reset moves the deadline forward by exactly one interval from the previous deadline, so a
// timer that is serviced late does not drift and every missed period is still observed.
type RepeatingTimer struct {
	clk      clock.Clock
	interval time.Duration
	deadline time.Time
}

func NewRepeatingTimer(clk clock.Clock) *RepeatingTimer {
	return &RepeatingTimer{clk: clk}
}

// Set arms the timer to expire d from now
func (t *RepeatingTimer) Set(d time.Duration) {
	t.interval = d
	t.deadline = t.clk.Now().Add(d)
}

func (t *RepeatingTimer) Expired() bool {
	return !t.deadline.IsZero() && !t.clk.Now().Before(t.deadline)
}

// Reset rearms the timer for the period following the previous deadline
func (t *RepeatingTimer) Reset() {
	t.deadline = t.deadline.Add(t.interval)
}

// Restart rearms the timer for one full interval from now
func (t *RepeatingTimer) Restart() {
	t.deadline = t.clk.Now().Add(t.interval)
}

func (t *RepeatingTimer) Deadline() time.Time {
	return t.deadline
}

func (t *RepeatingTimer) Interval() time.Duration {
	return t.interval
}
