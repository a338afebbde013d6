package testutil

import (
	"sync"
	"time"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
)

// Epoch is the default start instant of a DeterministicClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock provides a thread-safe monotonic clock for tests.
//
// Every call to Next advances by a fixed step, so event timestamps are
// unique, strictly increasing and identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewDeterministicClock creates a clock starting at Epoch with a one-second step.
//
// The first call to Next() returns Epoch + 1s.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch, time.Second)
}

// NewDeterministicClockAt creates a clock starting at start with the given step.
// The step is rounded up to the event tick resolution.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	if step < event.TickResolution {
		step = event.TickResolution
	}
	return &DeterministicClock{
		start: start.UTC().Truncate(event.TickResolution),
		step:  step.Truncate(event.TickResolution),
	}
}

// Next advances the clock and returns the new instant.
func (c *DeterministicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.at(c.n)
}

// Current returns the current instant without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at(c.n)
}

// Event returns a DomainEvent stamped with Next().
func (c *DeterministicClock) Event() event.DomainEvent {
	return event.NewDomainEventAt(c.Next())
}

// Reset rewinds the clock to its start.
//
// Used for test reuse. After Reset(), the next call to Next() returns start + step.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

func (c *DeterministicClock) at(n int64) time.Time {
	return c.start.Add(time.Duration(n) * c.step)
}
