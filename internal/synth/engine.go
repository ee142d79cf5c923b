package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/i-yam-jeremy/easypitch-go/internal/audio"
	"github.com/i-yam-jeremy/easypitch-go/internal/music"
)

// Engine renders instruments into device buffers. The device is an
// injected dependency; the engine never opens audio resources of its
// own.
type Engine struct {
	dev        audio.Device
	sampleRate int
	channels   int
}

// NewEngine wires a renderer to a device. channels is the buffer channel
// count requested from the device; the same rendered waveform lands on
// every channel.
func NewEngine(dev audio.Device, sampleRate, channels int) (*Engine, error) {
	if dev == nil {
		return nil, errors.New("nil device")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if channels <= 0 {
		return nil, errors.New("channel count must be positive")
	}
	return &Engine{dev: dev, sampleRate: sampleRate, channels: channels}, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) Channels() int   { return e.channels }

// Render produces seconds of the instrument at a fixed frequency, plus
// the instrument's decay tail. A frequency at or below zero is legal and
// renders the oscillator's constant phase-zero value shaped by the
// envelope; a non-positive duration is not.
func (e *Engine) Render(in *Instrument, freq, seconds float64) (*audio.Buffer, error) {
	if in == nil {
		return nil, errors.New("nil instrument")
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return nil, fmt.Errorf("%w: render length %v s", music.ErrInvalidDuration, seconds)
	}
	frames := int(math.Round(float64(e.sampleRate) * (seconds + in.Tail())))
	if frames < 1 {
		frames = 1
	}
	buf, err := e.dev.CreateBuffer(e.channels, frames, e.sampleRate)
	if err != nil {
		return nil, err
	}
	ch0 := buf.Channel(0)
	rate := float64(e.sampleRate)
	for i := range ch0 {
		ch0[i] = float32(in.Sample(float64(i)/rate, freq, seconds))
	}
	for c := 1; c < buf.Channels(); c++ {
		copy(buf.Channel(c), ch0)
	}
	return buf, nil
}

// RenderEntry renders one note entry at the given tempo. The pitch is
// resolved here, so unknown names fail at render time rather than when
// the timeline was built.
func (e *Engine) RenderEntry(in *Instrument, entry music.Entry, bpm float64) (*audio.Buffer, error) {
	if entry.Kind != music.KindNote {
		return nil, errors.New("only note entries render")
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	freq, err := music.Frequency(entry.Pitch, entry.Octave)
	if err != nil {
		return nil, err
	}
	return e.Render(in, freq, entry.Seconds(bpm))
}

// PlayEntry renders a note entry and submits it for playback, returning
// as soon as the buffer is handed off. Rest entries are a no-op.
func (e *Engine) PlayEntry(in *Instrument, entry music.Entry, bpm float64) error {
	if entry.Kind == music.KindRest {
		return nil
	}
	buf, err := e.RenderEntry(in, entry, bpm)
	if err != nil {
		return err
	}
	return e.dev.Submit(buf)
}
