package sequencer

import "time"

// Clock schedules callbacks after a delay. Playback runs on the system
// clock; tests substitute a manual clock to drive the timing chain
// deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback armed on a Clock.
type Timer interface {
	// Stop cancels the callback. It reports whether the cancellation
	// happened before the callback fired.
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall-clock scheduler backed by time.AfterFunc.
func SystemClock() Clock { return systemClock{} }
