package audio

import (
	"math"
	"testing"
	"time"
)

func TestNewBufferValidatesDimensions(t *testing.T) {
	cases := []struct {
		channels, frames, rate int
	}{
		{0, 100, 44100},
		{-1, 100, 44100},
		{2, 0, 44100},
		{2, 100, 0},
	}
	for _, tc := range cases {
		if _, err := NewBuffer(tc.channels, tc.frames, tc.rate); err == nil {
			t.Fatalf("NewBuffer(%d, %d, %d) succeeded, want error", tc.channels, tc.frames, tc.rate)
		}
	}
}

func TestBufferShape(t *testing.T) {
	buf, err := NewBuffer(2, 441, 44100)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	if buf.Channels() != 2 || buf.Frames() != 441 || buf.SampleRate() != 44100 {
		t.Fatalf("buffer shape = %d ch, %d frames, %d Hz", buf.Channels(), buf.Frames(), buf.SampleRate())
	}
	if got, want := buf.Duration(), 10*time.Millisecond; got != want {
		t.Fatalf("duration = %v, want %v", got, want)
	}
	buf.Channel(1)[7] = 0.5
	if buf.Channel(1)[7] != 0.5 {
		t.Fatalf("channel slice is not live")
	}
	if buf.Channel(0)[7] != 0 {
		t.Fatalf("write leaked across channels")
	}
}

func TestInterleaveStereoDuplicatesMono(t *testing.T) {
	buf, err := NewBuffer(1, 3, 8000)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	copy(buf.Channel(0), []float32{0.1, -0.2, 0.3})
	got := interleaveStereo(buf)
	want := []float32{0.1, 0.1, -0.2, -0.2, 0.3, 0.3}
	if len(got) != len(want) {
		t.Fatalf("interleaved length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPeakAndRMS(t *testing.T) {
	samples := []float32{3, -4}
	if got := Peak(samples); got != 4 {
		t.Fatalf("peak = %v, want 4", got)
	}
	if got := RMS(samples); math.Abs(float64(got)-math.Sqrt(12.5)) > 1e-5 {
		t.Fatalf("rms = %v, want sqrt(12.5)", got)
	}
	if Peak(nil) != 0 || RMS(nil) != 0 {
		t.Fatalf("empty input should meter as silence")
	}
}

func TestNormalize(t *testing.T) {
	samples := []float32{0.1, -0.4, 0.2}
	Normalize(samples, 0.8)
	if got := Peak(samples); math.Abs(float64(got)-0.8) > 1e-5 {
		t.Fatalf("normalized peak = %v, want 0.8", got)
	}
	silent := []float32{0, 0}
	Normalize(silent, 0.8)
	if silent[0] != 0 || silent[1] != 0 {
		t.Fatalf("silence was rescaled: %v", silent)
	}
}

func TestLimitLeavesLegalBlocksAlone(t *testing.T) {
	samples := []float32{0.5, -0.9, 1.0}
	limit(samples)
	want := []float32{0.5, -0.9, 1.0}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d changed to %v", i, samples[i])
		}
	}
}

func TestLimitBoundsHotBlocks(t *testing.T) {
	samples := []float32{1.5, -2, 0.3}
	limit(samples)
	if got := Peak(samples); got > 1 {
		t.Fatalf("limited peak = %v, want <= 1", got)
	}
	if math.Abs(float64(samples[0])-math.Tanh(1.5)) > 1e-6 {
		t.Fatalf("sample 0 = %v, want tanh(1.5)", samples[0])
	}
	if samples[1] >= 0 || samples[2] <= 0 {
		t.Fatalf("limiting flipped signs: %v", samples)
	}
}
