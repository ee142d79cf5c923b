package music

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMelody converts text notation into a timeline. Tokens are separated
// by whitespace. A note token is a pitch name, an optional single-digit
// octave, an optional /N duration denominator and an optional trailing
// dot: "c#5/8", "a4", "g/2.". A rest token replaces the pitch with r:
// "r/4". Defaults are octave 4 and a quarter-note duration; the dot
// stretches the duration by half.
func ParseMelody(text string) ([]Entry, error) {
	fields := strings.Fields(text)
	entries := make([]Entry, 0, len(fields))
	for i, tok := range fields {
		entry, err := parseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("token %d %q: %w", i+1, tok, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseToken(tok string) (Entry, error) {
	dotted := strings.HasSuffix(tok, ".")
	if dotted {
		tok = tok[:len(tok)-1]
	}
	body, duration := tok, 0.25
	if idx := strings.IndexByte(tok, '/'); idx >= 0 {
		denom, err := strconv.Atoi(tok[idx+1:])
		if err != nil || denom <= 0 {
			return Entry{}, fmt.Errorf("%w: bad denominator %q", ErrInvalidDuration, tok[idx+1:])
		}
		duration = 1 / float64(denom)
		body = tok[:idx]
	}
	if dotted {
		duration *= 1.5
	}
	if body == "r" || body == "R" {
		return Rest(duration), nil
	}
	name, octave := body, 4
	if n := len(body); n > 0 && body[n-1] >= '0' && body[n-1] <= '9' {
		octave = int(body[n-1] - '0')
		name = body[:n-1]
	}
	if !KnownPitch(name) {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownPitch, name)
	}
	return Note(name, octave, duration), nil
}
