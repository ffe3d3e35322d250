// Package admission gates upstream generation calls behind a sliding-window
// request count kept in process memory, mirroring the per-key quota of the
// upstream model. It is deliberately not distributed; each process carries its
// own margin below the published limits.
package admission

import (
	"fmt"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// Limits are the configured margins, both strictly below the upstream model's
// hard limits.
type Limits struct {
	PerMinute int
	PerDay    int
}

// Decision is the outcome of one admission check. Denial is a normal decision,
// not an error: WaitSeconds carries the earliest retry hint when one is
// computable (per-minute window only; the daily window resets at midnight).
type Decision struct {
	Allowed     bool
	WaitSeconds int
	Reason      string
}

// Controller tracks request timestamps for one API credential. All methods
// take an explicit now so that tests can drive the clock.
type Controller struct {
	mu         sync.Mutex
	limits     Limits
	timestamps []time.Time // ordered oldest-first, bounded by the day window
}

func NewController(limits Limits) *Controller {
	return &Controller{limits: limits}
}

// Check reports whether a request arriving at now would be admitted. It does
// not record anything.
func (c *Controller) Check(now time.Time) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge(now)
	return c.decide(now)
}

// Reserve checks admission and, when allowed, records the request as one
// atomic step. This is the call generation requests go through: concurrent
// callers cannot both observe a free slot and then race past the limit.
func (c *Controller) Reserve(now time.Time) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge(now)
	d := c.decide(now)
	if d.Allowed {
		c.timestamps = append(c.timestamps, now)
	}
	return d
}

// Record counts a request without checking. Kept for callers that already
// hold a Check decision and accept the check-then-record race.
func (c *Controller) Record(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge(now)
	c.timestamps = append(c.timestamps, now)
}

// purge drops timestamps older than the longest tracked window. Callers hold mu.
func (c *Controller) purge(now time.Time) {
	cutoff := now.Add(-dayWindow)
	i := 0
	for i < len(c.timestamps) && !c.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		c.timestamps = append(c.timestamps[:0], c.timestamps[i:]...)
	}
}

// decide evaluates both windows against the already-purged multiset. Callers hold mu.
func (c *Controller) decide(now time.Time) Decision {
	perDay := len(c.timestamps)

	minuteCutoff := now.Add(-minuteWindow)
	firstInMinute := -1
	perMinute := 0
	for i, ts := range c.timestamps {
		if ts.After(minuteCutoff) {
			if firstInMinute == -1 {
				firstInMinute = i
			}
			perMinute++
		}
	}

	if perMinute >= c.limits.PerMinute {
		oldest := c.timestamps[firstInMinute]
		wait := int(ceilSeconds(oldest.Add(minuteWindow).Sub(now)))
		if wait < 1 {
			wait = 1
		}
		return Decision{
			Allowed:     false,
			WaitSeconds: wait,
			Reason:      fmt.Sprintf("per-minute limit of %d requests reached", c.limits.PerMinute),
		}
	}

	if perDay >= c.limits.PerDay {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily limit of %d requests reached", c.limits.PerDay),
		}
	}

	return Decision{Allowed: true}
}

func ceilSeconds(d time.Duration) int64 {
	s := d / time.Second
	if d%time.Second > 0 {
		s++
	}
	return int64(s)
}
