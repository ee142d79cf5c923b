package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Device plays rendered buffers. Implementations own the underlying
// audio resource: callers create one explicitly, share it between
// components and close it when done.
type Device interface {
	// CreateBuffer allocates a zeroed buffer compatible with the device.
	CreateBuffer(channels, frames, sampleRate int) (*Buffer, error)
	// Submit starts asynchronous playback of a buffer and returns as soon
	// as it is handed off. Overlapping submissions mix additively.
	Submit(*Buffer) error
	// StopAll silences everything currently in flight.
	StopAll()
	// Close stops playback and releases the device.
	Close() error
}

// Output is the production Device, backed by the platform mixer. The
// mixer context is stereo and fixed-rate, so CreateBuffer rejects sample
// rates other than the one the Output was opened with. The platform
// allows a single context per process; open at most one Output.
type Output struct {
	ctx        *ebitaudio.Context
	sampleRate int
	masterGain uint64 // float64 bits, accessed atomically

	mu      sync.Mutex
	players []*ebitaudio.Player
	closed  bool
}

func NewOutput(sampleRate int) (*Output, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	o := &Output{
		ctx:        ebitaudio.NewContext(sampleRate),
		sampleRate: sampleRate,
	}
	atomic.StoreUint64(&o.masterGain, math.Float64bits(1))
	return o, nil
}

func (o *Output) SampleRate() int { return o.sampleRate }

// SetMasterGain sets the scalar applied to every subsequent submission.
// Stored atomically so submissions never contend with the control side.
func (o *Output) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&o.masterGain, math.Float64bits(gain))
}

func (o *Output) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&o.masterGain))
}

func (o *Output) CreateBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if sampleRate != o.sampleRate {
		return nil, fmt.Errorf("device runs at %d Hz (requested %d Hz)", o.sampleRate, sampleRate)
	}
	if channels > 2 {
		return nil, fmt.Errorf("stereo device cannot take %d channels", channels)
	}
	return NewBuffer(channels, frames, sampleRate)
}

// Submit interleaves the buffer to little-endian float32 bytes, applies
// the master gain and the soft limiter, and starts a fresh player on the
// mixer. Players finished since the last call are pruned on the way.
func (o *Output) Submit(buf *Buffer) error {
	if buf == nil || buf.Frames() == 0 {
		return errors.New("empty buffer")
	}
	if buf.SampleRate() != o.sampleRate {
		return fmt.Errorf("device runs at %d Hz (buffer is %d Hz)", o.sampleRate, buf.SampleRate())
	}
	samples := interleaveStereo(buf)
	if gain := float32(o.MasterGain()); gain != 1 {
		scale(samples, gain)
	}
	limit(samples)
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.New("output closed")
	}
	o.prunePlayersLocked()
	pl := o.ctx.NewPlayerF32FromBytes(data)
	pl.Play()
	o.players = append(o.players, pl)
	return nil
}

func (o *Output) StopAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pl := range o.players {
		pl.Pause()
		pl.Close()
	}
	o.players = o.players[:0]
}

// Close stops playback and marks the device unusable. The mixer context
// itself has no teardown; it stays parked until the process exits.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	players := o.players
	o.players = nil
	o.mu.Unlock()
	for _, pl := range players {
		pl.Pause()
		pl.Close()
	}
	return nil
}

func (o *Output) prunePlayersLocked() {
	kept := o.players[:0]
	for _, pl := range o.players {
		if pl.IsPlaying() {
			kept = append(kept, pl)
		} else {
			pl.Close()
		}
	}
	o.players = kept
}

// interleaveStereo flattens a buffer to frame-major stereo, duplicating a
// mono channel across both sides.
func interleaveStereo(buf *Buffer) []float32 {
	frames := buf.Frames()
	left := buf.Channel(0)
	right := left
	if buf.Channels() > 1 {
		right = buf.Channel(1)
	}
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}
	return out
}
