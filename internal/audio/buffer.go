package audio

import (
	"fmt"
	"time"
)

// Buffer is a block of non-interleaved PCM frames. Channel data lives in
// separate slices so render code can fill channel 0 and copy it across.
type Buffer struct {
	sampleRate int
	data       [][]float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", frames)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, frames)
	}
	return &Buffer{sampleRate: sampleRate, data: data}, nil
}

func (b *Buffer) Channels() int   { return len(b.data) }
func (b *Buffer) SampleRate() int { return b.sampleRate }

func (b *Buffer) Frames() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// Channel returns the sample slice backing one channel. The slice is
// live: writes through it change the buffer.
func (b *Buffer) Channel(i int) []float32 { return b.data[i] }

// Duration returns the buffer length in wall-clock terms.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(b.Frames()) / float64(b.sampleRate) * float64(time.Second))
}
