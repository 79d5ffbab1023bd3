package icmp

import "time"

// Clock is the session's time source. Now must carry a monotonic reading
// so that Sub between two values is immune to wall clock steps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the process clock backed by package time.
func SystemClock() Clock {
	return systemClock{}
}
