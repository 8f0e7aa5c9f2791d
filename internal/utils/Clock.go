package utils

import "time"

// Clock is the only source of "now" for status and urgency computations.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// Advance moves the mock clock forward and returns the new instant.
func (m *MockClock) Advance(d time.Duration) time.Time {
	m.FixedNow = m.FixedNow.Add(d)
	return m.FixedNow
}

// Today returns the civil date of clock.Now() in loc. A nil loc keeps the clock's own location.
func Today(clock Clock, loc *time.Location) Date {
	now := clock.Now()
	if loc != nil {
		now = now.In(loc)
	}
	return DateOf(now)
}
