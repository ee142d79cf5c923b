// Package envelope shapes note amplitude over time. Envelopes are plain
// values with no mutable state, so one envelope can serve any number of
// concurrent renders.
package envelope

import "math"

// Envelope maps elapsed playback time to an amplitude multiplier in [0, 1].
type Envelope interface {
	// Amplitude returns the gain at elapsed seconds into a note scheduled
	// to last duration seconds.
	Amplitude(elapsed, duration float64) float64
}

// Linear is a piecewise-linear attack/hold/decay envelope over normalized
// note progress. Attack and Decay are breakpoints as fractions of the
// note: gain ramps 0 to 1 over [0, Attack], holds 1 over [Attack, Decay]
// and ramps back to 0 over [Decay, 1]. Callers keep 0 <= Attack <= Decay
// <= 1; NewLinear clamps arbitrary input into that shape.
type Linear struct {
	Attack float64
	Decay  float64
}

// DefaultLinear returns the stock linear envelope: attack over the first
// tenth of the note, decay from the midpoint.
func DefaultLinear() Linear {
	return Linear{Attack: 0.1, Decay: 0.5}
}

// NewLinear clamps the breakpoints into 0 <= attack <= decay <= 1.
func NewLinear(attack, decay float64) Linear {
	attack = clamp(attack, 0, 1)
	decay = clamp(decay, attack, 1)
	return Linear{Attack: attack, Decay: decay}
}

func (l Linear) Amplitude(elapsed, duration float64) float64 {
	if duration <= 0 || elapsed <= 0 {
		return 0
	}
	p := elapsed / duration
	switch {
	case p >= 1:
		return 0
	case p < l.Attack:
		return p / l.Attack
	case p < l.Decay:
		return 1
	default:
		return (1 - p) / (1 - l.Decay)
	}
}

// LogNormal is a percussive envelope: a near-instant attack followed by a
// long ringing tail. Unlike Linear it ignores the scheduled duration; the
// gain depends only on absolute elapsed time, so short notes decay past
// their slot. Scale compresses time; larger values peak sooner and fade
// faster.
type LogNormal struct {
	Scale float64
}

// DefaultLogNormal returns the stock log-normal envelope, peaking 20 ms
// into the note.
func DefaultLogNormal() LogNormal {
	return LogNormal{Scale: 50}
}

var logNormalPeak = 1 / math.Sqrt(2*math.Pi)

func (n LogNormal) Amplitude(elapsed, _ float64) float64 {
	if elapsed <= 0 || n.Scale <= 0 {
		return 0
	}
	ln := math.Log(n.Scale * elapsed)
	return logNormalPeak * math.Exp(-0.5*ln*ln)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
