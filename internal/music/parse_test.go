package music

import (
	"errors"
	"testing"
)

func TestParseMelodyTokens(t *testing.T) {
	entries, err := ParseMelody("c4/4 c#5/8 r/2 a g/2. Bb3 r")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []Entry{
		Note("c", 4, 0.25),
		Note("c#", 5, 0.125),
		Rest(0.5),
		Note("a", 4, 0.25),
		Note("g", 4, 0.75),
		Note("Bb", 3, 0.25),
		Rest(0.25),
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseMelodyEmptyInput(t *testing.T) {
	entries, err := ParseMelody("   \n\t ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("blank input produced %d entries", len(entries))
	}
}

func TestParseMelodyRejectsBadTokens(t *testing.T) {
	cases := []struct {
		text string
		want error
	}{
		{"c4/x", ErrInvalidDuration},
		{"c4/0", ErrInvalidDuration},
		{"a4/-8", ErrInvalidDuration},
		{"h4", ErrUnknownPitch},
		{"c##4", ErrUnknownPitch},
	}
	for _, tc := range cases {
		if _, err := ParseMelody(tc.text); !errors.Is(err, tc.want) {
			t.Fatalf("ParseMelody(%q) error = %v, want %v", tc.text, err, tc.want)
		}
	}
}
