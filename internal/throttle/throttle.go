// Package throttle implements the moving-average sleep-duration
// controller that paces the session's draw rate to the
// speed at which the view actually finishes rendering a frame.
package throttle

import "time"

const windowLength = 50

// movingAverage keeps the mean of the last windowLength durations
// without re-summing the whole window on every sample: each Add
// subtracts the outgoing sample's contribution and adds the incoming
// one, both pre-divided by windowLength.
type movingAverage struct {
	window  []time.Duration
	next    int
	filled  bool
	mean    time.Duration
}

func newMovingAverage() *movingAverage {
	return &movingAverage{window: make([]time.Duration, windowLength)}
}

func (m *movingAverage) add(d time.Duration) {
	contribution := d / windowLength
	if m.filled {
		outgoing := m.window[m.next] / windowLength
		m.mean += contribution - outgoing
	} else {
		m.mean += contribution
	}
	m.window[m.next] = d
	m.next++
	if m.next == windowLength {
		m.next = 0
		m.filled = true
	}
}

func (m *movingAverage) get() time.Duration { return m.mean }

// Controller tracks a moving average of per-frame "leftover delay"
// samples (the time the session spends waiting for the previous
// frame's decode+draw to finish) and derives a sleep duration from it.
// Once the average clears 1ms, the controller adds it to the sleep
// duration and freezes further increases for one window's worth of
// samples, preventing the adjustment from running away. Every 500ms it
// decays the sleep duration by 5/2/1ms depending on its current
// magnitude, floored at zero.
type Controller struct {
	sleepDuration time.Duration
	lastDecrease  time.Time
	delayAverage  *movingAverage
	freezeCounter int

	now func() time.Time
}

func New() *Controller {
	return NewWithClock(time.Now)
}

// NewWithClock lets tests supply a deterministic clock; production
// callers should use New.
func NewWithClock(now func() time.Time) *Controller {
	return &Controller{
		delayAverage: newMovingAverage(),
		lastDecrease: now(),
		now:          now,
	}
}

// RegisterLeftoverFrameDelay feeds one sample into the moving average
// and updates SleepDuration accordingly.
func (c *Controller) RegisterLeftoverFrameDelay(delay time.Duration) {
	const threshold = time.Millisecond

	c.delayAverage.add(delay)
	avg := c.delayAverage.get()

	if c.freezeCounter != 0 {
		c.freezeCounter--
	} else if avg > threshold {
		c.sleepDuration += avg
		c.freezeCounter = windowLength
	}

	if c.now().Sub(c.lastDecrease) > 500*time.Millisecond {
		minus := time.Millisecond
		switch {
		case c.sleepDuration > 100*time.Millisecond:
			minus = 5 * time.Millisecond
		case c.sleepDuration > 50*time.Millisecond:
			minus = 2 * time.Millisecond
		}
		if c.sleepDuration >= minus {
			c.sleepDuration -= minus
		} else {
			c.sleepDuration = 0
		}
		c.lastDecrease = c.now()
	}
}

// SleepDuration is how long the session should sleep before starting
// the next frame's I/O.
func (c *Controller) SleepDuration() time.Duration { return c.sleepDuration }
