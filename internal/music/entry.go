package music

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDuration is returned for durations that cannot be scheduled.
var ErrInvalidDuration = errors.New("invalid duration")

// EntryKind discriminates timeline entries.
type EntryKind int

const (
	KindNote EntryKind = iota + 1
	KindRest
)

// Entry is one element of a melody timeline: a pitched note or a silent
// rest. Duration is the fraction of a whole note (1 = whole, 0.25 =
// quarter); at tempo bpm a whole note spans 60/bpm seconds.
type Entry struct {
	Kind     EntryKind
	Pitch    string
	Octave   int
	Duration float64
}

// Note builds a pitched timeline entry. The pitch name is resolved at
// render time, not here, so one bad name cannot halt a running sequence.
func Note(pitch string, octave int, duration float64) Entry {
	return Entry{Kind: KindNote, Pitch: pitch, Octave: octave, Duration: duration}
}

// Rest builds a silent timeline entry.
func Rest(duration float64) Entry {
	return Entry{Kind: KindRest, Duration: duration}
}

// Seconds converts the entry's whole-note fraction to wall-clock seconds
// at the given tempo.
func (e Entry) Seconds(bpm float64) float64 {
	return 60 / bpm * e.Duration
}

// Validate rejects entries whose duration cannot be scheduled.
func (e Entry) Validate() error {
	if math.IsNaN(e.Duration) || math.IsInf(e.Duration, 0) || e.Duration <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, e.Duration)
	}
	return nil
}

func (e Entry) String() string {
	if e.Kind == KindRest {
		return "rest"
	}
	return fmt.Sprintf("%s%d", e.Pitch, e.Octave)
}

// TotalSeconds returns the scheduled length of a timeline at the given
// tempo.
func TotalSeconds(entries []Entry, bpm float64) float64 {
	var total float64
	for _, e := range entries {
		total += e.Seconds(bpm)
	}
	return total
}
