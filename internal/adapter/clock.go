package adapter

import "time"

// Clock is the time source of the emitter, the subscriber and the API.
// Tests pin it so cursor save cadence and pending-reward projection are deterministic.
//
//go:generate mockgen -source=clock.go -destination=../mocks/clock.go -package=mocks -mock_names=Clock=MockClock
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Unix(sec int64, nsec int64) time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

// NewClock returns the wall clock
func NewClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (systemClock) Unix(sec int64, nsec int64) time.Time   { return time.Unix(sec, nsec) }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
