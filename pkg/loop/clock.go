package loop

import "time"

// Clock abstracts wall-clock access so tests can run the seed scenarios
// (S1 alone specifies a 10 s settle) without waiting in real time.
type Clock struct {
	Now   func() time.Time
	Sleep func(time.Duration)
}

// RealClock uses the actual wall clock.
func RealClock() Clock {
	return Clock{Now: time.Now, Sleep: time.Sleep}
}
