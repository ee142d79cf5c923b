package music

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownPitch is returned when a pitch name has no table entry.
var ErrUnknownPitch = errors.New("unknown pitch name")

// referenceFrequencies holds equal-temperament frequencies in Hz at octave 8
// (scientific pitch notation). Every octave below halves the value, so one
// table row serves all octaves.
var referenceFrequencies = map[string]float64{
	"C":  4186.01,
	"C#": 4434.92,
	"D":  4698.64,
	"D#": 4978.03,
	"E":  5274.04,
	"F":  5587.65,
	"F#": 5919.91,
	"G":  6271.93,
	"G#": 6644.88,
	"A":  7040.00,
	"A#": 7458.62,
	"B":  7902.13,
}

// flatAliases folds flat spellings onto their sharp equivalents. Both
// spellings resolve through the same table row, so enharmonic pairs are
// equal by construction rather than by duplicated constants.
var flatAliases = map[string]string{
	"Db": "C#",
	"Eb": "D#",
	"Gb": "F#",
	"Ab": "G#",
	"Bb": "A#",
}

// canonicalPitch normalizes a pitch name to its table key: the letter is
// upcased and flats become sharps. ok is false for anything outside the
// twelve supported classes.
func canonicalPitch(name string) (string, bool) {
	if len(name) == 0 || len(name) > 2 {
		return "", false
	}
	letter := name[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'G' {
		return "", false
	}
	if len(name) == 1 {
		return string(letter), true
	}
	switch name[1] {
	case '#':
		key := string(letter) + "#"
		if _, ok := referenceFrequencies[key]; ok {
			return key, true
		}
	case 'b', 'B':
		if sharp, ok := flatAliases[string(letter)+"b"]; ok {
			return sharp, true
		}
	}
	return "", false
}

// KnownPitch reports whether name resolves to a pitch table entry.
func KnownPitch(name string) bool {
	_, ok := canonicalPitch(name)
	return ok
}

// Frequency returns the frequency in Hz of the named pitch at the given
// octave. The octave-8 reference is scaled by 2^(octave-8); A at octave 4
// comes out at exactly 440 Hz. Names are matched case-insensitively and
// accept sharp (#) and flat (b) spellings.
func Frequency(name string, octave int) (float64, error) {
	key, ok := canonicalPitch(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPitch, name)
	}
	return referenceFrequencies[key] * math.Pow(2, float64(octave-8)), nil
}

// PitchNames lists every spelling the table accepts, sharps before their
// flat aliases, in ascending pitch order.
func PitchNames() []string {
	return []string{
		"C", "C#", "Db", "D", "D#", "Eb", "E", "F",
		"F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B",
	}
}
