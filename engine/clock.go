package engine

import "time"

// Clock abstracts wall-clock reads so the two clock-dependent branches of
// the pipeline (rollover of still-open non-terminal tickets, fallback end
// instant for a missing change stamp) stay deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
