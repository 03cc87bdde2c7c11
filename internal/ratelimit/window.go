// Package ratelimit admits work to a backend at a bounded rate.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Channel admits at most limit callers within any trailing window of length
// per. Admission times are kept as a log, so a burst at the end of one window
// cannot be followed by a full burst at the start of the next.
type Channel struct {
	name  string
	limit int
	per   time.Duration

	mu       sync.Mutex
	admitted []time.Time // ascending; only entries inside the window
	total    int64
	waiting  int

	now func() time.Time
}

// NewChannel returns a channel admitting limit callers per window. A limit
// below 1 is treated as 1.
func NewChannel(name string, limit int, per time.Duration) *Channel {
	if limit < 1 {
		limit = 1
	}
	if per <= 0 {
		per = time.Second
	}
	return &Channel{
		name:     name,
		limit:    limit,
		per:      per,
		admitted: make([]time.Time, 0, limit),
		now:      time.Now,
	}
}

func (c *Channel) Name() string { return c.name }

// Wait blocks until the caller may proceed or ctx is done.
func (c *Channel) Wait(ctx context.Context) error {
	c.mu.Lock()
	c.waiting++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()

	for {
		delay := c.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records an admission and returns 0, or returns how long until the
// oldest admission leaves the window.
func (c *Channel) reserve() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)
	if len(c.admitted) < c.limit {
		c.admitted = append(c.admitted, now)
		c.total++
		return 0
	}
	delay := c.admitted[0].Add(c.per).Sub(now)
	if delay <= 0 {
		delay = time.Millisecond
	}
	return delay
}

func (c *Channel) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.per)
	i := 0
	for i < len(c.admitted) && !c.admitted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		c.admitted = append(c.admitted[:0], c.admitted[i:]...)
	}
}

// ChannelStats is a point-in-time view of one channel.
type ChannelStats struct {
	Name     string  `json:"name"`
	Limit    int     `json:"limit"`
	PerMs    int64   `json:"per_ms"`
	Admitted int64   `json:"admitted"`
	InWindow int     `json:"in_window"`
	Waiting  int     `json:"waiting"`
	Rate     float64 `json:"rate_per_second"`
}

func (c *Channel) Stats() ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return ChannelStats{
		Name:     c.name,
		Limit:    c.limit,
		PerMs:    c.per.Milliseconds(),
		Admitted: c.total,
		InWindow: len(c.admitted),
		Waiting:  c.waiting,
		Rate:     float64(c.limit) / c.per.Seconds(),
	}
}
