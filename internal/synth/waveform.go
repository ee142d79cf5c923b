package synth

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownWaveform is returned for wave shape names outside the
// supported set.
var ErrUnknownWaveform = errors.New("unsupported wave shape")

// Waveform selects the base oscillator shape.
type Waveform int

const (
	Square Waveform = iota + 1
	Triangle
	Sine
)

func (w Waveform) String() string {
	switch w {
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Sine:
		return "sine"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// ParseWaveform resolves a shape name, matched case-insensitively.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	case "sine":
		return Sine, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWaveform, name)
}

// sample evaluates the oscillator at position x, measured in cycles.
// Every shape stays inside [-1, 1] for any input: the square holds +1
// through the first half cycle and -1 through the second, the triangle
// ramps -1 to +1 and back, the sine is the usual sin(2*pi*x).
func (w Waveform) sample(x float64) float64 {
	phase := x - math.Floor(x)
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
