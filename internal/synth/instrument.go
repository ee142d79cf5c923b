package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/i-yam-jeremy/easypitch-go/internal/envelope"
)

// Vibrato is an optional pitch wobble: Depth semitones of deviation at
// Rate hertz. The zero value disables it.
type Vibrato struct {
	Rate  float64
	Depth float64
}

// Instrument pairs a base waveform with overtone weights and an
// amplitude envelope. Instruments are immutable after construction and
// safe for concurrent renders; sampling walks the partial stack with no
// shared state.
type Instrument struct {
	name      string
	wave      Waveform
	overtones []float64
	weightSum float64
	env       envelope.Envelope
	vibrato   Vibrato
	tail      float64
	gain      float64
}

type InstrumentOption func(*Instrument)

// WithEnvelope replaces the default linear envelope.
func WithEnvelope(env envelope.Envelope) InstrumentOption {
	return func(in *Instrument) { in.env = env }
}

// WithVibrato adds a pitch wobble on top of the fundamental.
func WithVibrato(v Vibrato) InstrumentOption {
	return func(in *Instrument) { in.vibrato = v }
}

// WithTail renders extra seconds of envelope decay past a note's
// scheduled duration, so tails bleed into the next onset instead of
// cutting off at the slot boundary.
func WithTail(seconds float64) InstrumentOption {
	return func(in *Instrument) { in.tail = seconds }
}

// WithGain scales the instrument output. 1 is unity; values above 1 can
// push summed playback past full scale and into the output limiter.
func WithGain(gain float64) InstrumentOption {
	return func(in *Instrument) { in.gain = gain }
}

// NewInstrument builds an instrument from a base shape and overtone
// weights. overtones[i] weighs the partial at (i+1) times the
// fundamental. Weights must be non-negative and sum to a positive value;
// rendered samples are always divided by that sum, which keeps the stack
// inside [-1, 1] no matter how large the weights are.
func NewInstrument(name string, wave Waveform, overtones []float64, opts ...InstrumentOption) (*Instrument, error) {
	if wave != Square && wave != Triangle && wave != Sine {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWaveform, int(wave))
	}
	var sum float64
	for i, w := range overtones {
		if math.IsNaN(w) || w < 0 {
			return nil, fmt.Errorf("overtone %d has weight %v, want >= 0", i, w)
		}
		sum += w
	}
	if sum <= 0 || math.IsInf(sum, 1) {
		return nil, errors.New("overtone weights must sum to a positive finite value")
	}
	in := &Instrument{
		name:      name,
		wave:      wave,
		overtones: append([]float64(nil), overtones...),
		weightSum: sum,
		env:       envelope.DefaultLinear(),
		gain:      1,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.env == nil {
		in.env = envelope.DefaultLinear()
	}
	if in.tail < 0 {
		in.tail = 0
	}
	if in.gain < 0 {
		in.gain = 0
	}
	return in, nil
}

func (in *Instrument) Name() string     { return in.name }
func (in *Instrument) Wave() Waveform   { return in.wave }
func (in *Instrument) Tail() float64    { return in.tail }
func (in *Instrument) Gain() float64    { return in.gain }
func (in *Instrument) Vibrato() Vibrato { return in.vibrato }

// Envelope returns the amplitude envelope the instrument renders with.
func (in *Instrument) Envelope() envelope.Envelope { return in.env }

// Overtones returns a copy of the overtone weights.
func (in *Instrument) Overtones() []float64 {
	return append([]float64(nil), in.overtones...)
}

// Sample evaluates the instrument t seconds into a note with the given
// fundamental frequency and scheduled duration. The partial stack is
// summed, normalized by the weight sum, then shaped by the envelope and
// the instrument gain.
func (in *Instrument) Sample(t, freq, duration float64) float64 {
	f := freq
	if in.vibrato.Depth != 0 && in.vibrato.Rate > 0 {
		f = freq * math.Pow(2, in.vibrato.Depth*math.Sin(2*math.Pi*in.vibrato.Rate*t)/12)
	}
	var sum float64
	for i, w := range in.overtones {
		if w == 0 {
			continue
		}
		sum += w * in.wave.sample(f*float64(i+1)*t)
	}
	return sum / in.weightSum * in.env.Amplitude(t, duration) * in.gain
}
