package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/i-yam-jeremy/easypitch-go/internal/audio"
	"github.com/i-yam-jeremy/easypitch-go/internal/envelope"
	"github.com/i-yam-jeremy/easypitch-go/internal/music"
)

type captureDevice struct {
	submitted []*audio.Buffer
	stops     int
	submitErr error
}

func (d *captureDevice) CreateBuffer(channels, frames, sampleRate int) (*audio.Buffer, error) {
	return audio.NewBuffer(channels, frames, sampleRate)
}

func (d *captureDevice) Submit(buf *audio.Buffer) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submitted = append(d.submitted, buf)
	return nil
}

func (d *captureDevice) StopAll()     { d.stops++ }
func (d *captureDevice) Close() error { return nil }

func newTestEngine(t *testing.T, rate, channels int) (*Engine, *captureDevice) {
	t.Helper()
	dev := &captureDevice{}
	eng, err := NewEngine(dev, rate, channels)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, dev
}

func TestParseWaveform(t *testing.T) {
	cases := []struct {
		in   string
		want Waveform
	}{
		{"square", Square},
		{"SQUARE", Square},
		{" triangle ", Triangle},
		{"sine", Sine},
		{"Sine", Sine},
	}
	for _, c := range cases {
		got, err := ParseWaveform(c.in)
		if err != nil {
			t.Fatalf("ParseWaveform(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseWaveform(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "saw", "sin", "square wave"} {
		if _, err := ParseWaveform(bad); !errors.Is(err, ErrUnknownWaveform) {
			t.Fatalf("ParseWaveform(%q) err = %v, want ErrUnknownWaveform", bad, err)
		}
	}
}

func TestWaveformSampleValues(t *testing.T) {
	const tol = 1e-12
	cases := []struct {
		wave Waveform
		x    float64
		want float64
	}{
		{Square, 0, 1},
		{Square, 0.25, 1},
		{Square, 0.5, -1},
		{Square, 0.75, -1},
		{Square, 1.0, 1},
		{Square, -0.25, -1},
		{Triangle, 0, -1},
		{Triangle, 0.25, 0},
		{Triangle, 0.5, 1},
		{Triangle, 0.75, 0},
		{Triangle, 2.25, 0},
		{Sine, 0, 0},
		{Sine, 0.25, 1},
		{Sine, 0.75, -1},
	}
	for _, c := range cases {
		got := c.wave.sample(c.x)
		if math.Abs(got-c.want) > tol {
			t.Fatalf("%v.sample(%v) = %v, want %v", c.wave, c.x, got, c.want)
		}
	}
}

func TestNewInstrumentValidation(t *testing.T) {
	if _, err := NewInstrument("bad", Waveform(0), []float64{1}); !errors.Is(err, ErrUnknownWaveform) {
		t.Fatalf("zero waveform err = %v, want ErrUnknownWaveform", err)
	}
	if _, err := NewInstrument("bad", Waveform(99), []float64{1}); !errors.Is(err, ErrUnknownWaveform) {
		t.Fatalf("out-of-range waveform err = %v, want ErrUnknownWaveform", err)
	}
	for _, overtones := range [][]float64{nil, {}, {-1, 2}, {1, math.NaN()}, {0, 0, 0}, {math.Inf(1)}} {
		if _, err := NewInstrument("bad", Sine, overtones); err == nil {
			t.Fatalf("overtones %v: expected error", overtones)
		}
	}
	if _, err := NewInstrument("ok", Sine, []float64{1, 0, 0.5}); err != nil {
		t.Fatalf("valid instrument rejected: %v", err)
	}
}

func TestInstrumentOvertonesCopied(t *testing.T) {
	weights := []float64{1, 0.5}
	in, err := NewInstrument("copy", Sine, weights)
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	weights[0] = 99
	got := in.Overtones()
	if got[0] != 1 || got[1] != 0.5 {
		t.Fatalf("instrument shares caller slice: %v", got)
	}
	got[1] = -7
	if again := in.Overtones(); again[1] != 0.5 {
		t.Fatalf("Overtones returns live slice: %v", again)
	}
}

func TestOvertoneWeightScaleInvariance(t *testing.T) {
	a, err := NewInstrument("a", Sine, []float64{1, 2})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	b, err := NewInstrument("b", Sine, []float64{2, 4})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	for i := 0; i < 200; i++ {
		tm := float64(i) / 1000
		sa := a.Sample(tm, 220, 0.2)
		sb := b.Sample(tm, 220, 0.2)
		if sa != sb {
			t.Fatalf("t=%v: scaled weights diverge, %v vs %v", tm, sa, sb)
		}
	}
}

func TestInstrumentSampleBounded(t *testing.T) {
	in, err := NewInstrument("mix", Triangle, []float64{1, 0.5, 0.25, 0.125})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	for i := 0; i < 5000; i++ {
		tm := float64(i) / 44100
		s := in.Sample(tm, 440, 0.1)
		if math.Abs(s) > 1 || math.IsNaN(s) {
			t.Fatalf("sample out of range at t=%v: %v", tm, s)
		}
	}
}

func TestVibratoBendsPitch(t *testing.T) {
	plain, err := NewInstrument("plain", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	bent, err := NewInstrument("bent", Sine, []float64{1}, WithVibrato(Vibrato{Rate: 5, Depth: 1}))
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	// Modulation is zero at t=0 and maximal a quarter cycle in.
	if p, b := plain.Sample(0, 440, 1), bent.Sample(0, 440, 1); p != b {
		t.Fatalf("vibrato shifted t=0 sample: %v vs %v", p, b)
	}
	const quarter = 0.05
	if p, b := plain.Sample(quarter, 440, 1), bent.Sample(quarter, 440, 1); p == b {
		t.Fatalf("vibrato had no effect at t=%v", quarter)
	}
}

func TestRenderBufferLength(t *testing.T) {
	eng, _ := newTestEngine(t, 48000, 1)
	in, err := NewInstrument("len", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	buf, err := eng.Render(in, 440, 0.075)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Frames() != 3600 {
		t.Fatalf("frames = %d, want 3600", buf.Frames())
	}
	if buf.SampleRate() != 48000 || buf.Channels() != 1 {
		t.Fatalf("buffer shape %d ch @ %d Hz", buf.Channels(), buf.SampleRate())
	}
}

func TestRenderTailExtendsBuffer(t *testing.T) {
	eng, _ := newTestEngine(t, 1000, 1)
	in, err := NewInstrument("tail", Sine, []float64{1}, WithTail(0.5))
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	buf, err := eng.Render(in, 220, 0.25)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Frames() != 750 {
		t.Fatalf("frames = %d, want 750", buf.Frames())
	}
}

func TestRenderDuplicatesChannels(t *testing.T) {
	eng, _ := newTestEngine(t, 8000, 2)
	in, err := NewInstrument("stereo", Square, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	buf, err := eng.Render(in, 100, 0.01)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	left, right := buf.Channel(0), buf.Channel(1)
	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("channels diverge at frame %d: %v vs %v", i, left[i], right[i])
		}
	}
}

func TestRenderPeakOfOvertoneStack(t *testing.T) {
	eng, _ := newTestEngine(t, 48000, 1)
	in, err := NewInstrument("stack", Sine, []float64{1, 0, 0, 0.25},
		WithEnvelope(envelope.NewLinear(0, 1)))
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	buf, err := eng.Render(in, 100, 0.05)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	peak := audio.Peak(buf.Channel(0))
	if peak <= 0.9 || peak > 1.0 {
		t.Fatalf("normalized stack peak = %v, want in (0.9, 1.0]", peak)
	}
}

func TestRenderNonPositiveFrequency(t *testing.T) {
	eng, _ := newTestEngine(t, 8000, 1)
	in, err := NewInstrument("dc", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	for _, freq := range []float64{0, -5} {
		buf, err := eng.Render(in, freq, 0.01)
		if err != nil {
			t.Fatalf("Render(freq=%v): %v", freq, err)
		}
		for i, s := range buf.Channel(0) {
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				t.Fatalf("freq=%v frame %d not finite: %v", freq, i, s)
			}
		}
	}
}

func TestRenderRejectsBadDuration(t *testing.T) {
	eng, _ := newTestEngine(t, 8000, 1)
	in, err := NewInstrument("bad", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	for _, seconds := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := eng.Render(in, 440, seconds); !errors.Is(err, music.ErrInvalidDuration) {
			t.Fatalf("Render(seconds=%v) err = %v, want ErrInvalidDuration", seconds, err)
		}
	}
}

func TestRenderEntry(t *testing.T) {
	eng, _ := newTestEngine(t, 48000, 1)
	in, err := NewInstrument("entry", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	buf, err := eng.RenderEntry(in, music.Note("c", 4, 0.25), 120)
	if err != nil {
		t.Fatalf("RenderEntry: %v", err)
	}
	if buf.Frames() != 6000 {
		t.Fatalf("quarter note at 120 bpm: frames = %d, want 6000", buf.Frames())
	}
	if _, err := eng.RenderEntry(in, music.Note("h", 4, 0.25), 120); !errors.Is(err, music.ErrUnknownPitch) {
		t.Fatalf("unknown pitch err = %v, want ErrUnknownPitch", err)
	}
	if _, err := eng.RenderEntry(in, music.Rest(0.25), 120); err == nil {
		t.Fatal("rendering a rest should fail")
	}
}

func TestPlayEntry(t *testing.T) {
	eng, dev := newTestEngine(t, 48000, 1)
	in, err := NewInstrument("play", Sine, []float64{1})
	if err != nil {
		t.Fatalf("NewInstrument: %v", err)
	}
	if err := eng.PlayEntry(in, music.Rest(0.5), 120); err != nil {
		t.Fatalf("PlayEntry(rest): %v", err)
	}
	if len(dev.submitted) != 0 {
		t.Fatalf("rest submitted %d buffers", len(dev.submitted))
	}
	if err := eng.PlayEntry(in, music.Note("a", 4, 0.25), 120); err != nil {
		t.Fatalf("PlayEntry(note): %v", err)
	}
	if len(dev.submitted) != 1 {
		t.Fatalf("submitted %d buffers, want 1", len(dev.submitted))
	}
	if got := dev.submitted[0].Frames(); got != 6000 {
		t.Fatalf("submitted frames = %d, want 6000", got)
	}

	dev.submitErr = errors.New("device gone")
	if err := eng.PlayEntry(in, music.Note("a", 4, 0.25), 120); err == nil {
		t.Fatal("expected submit error to propagate")
	}
}

func TestNewEngineValidation(t *testing.T) {
	dev := &captureDevice{}
	if _, err := NewEngine(nil, 44100, 1); err == nil {
		t.Fatal("nil device accepted")
	}
	if _, err := NewEngine(dev, 0, 1); err == nil {
		t.Fatal("zero sample rate accepted")
	}
	if _, err := NewEngine(dev, 44100, 0); err == nil {
		t.Fatal("zero channels accepted")
	}
}
