package time

import "time"

// clock measures how long a harness run takes
// time.Since reads the monotonic reading captured by time.Now, so wall clock
// adjustments during a run do not skew Elapsed
type Clock struct {
	startTime time.Time
}

func NewClock() *Clock {
	return &Clock{
		startTime: time.Now(),
	}
}

// wall time the clock was started, for reports
func (c *Clock) StartedAt() time.Time {
	return c.startTime.Round(0) //strip monotonic reading so it serializes cleanly
}

// duration since the clock started, never negative
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.startTime)
}
