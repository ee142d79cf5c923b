package easypitch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/errgroup"

	intaudio "github.com/i-yam-jeremy/easypitch-go/internal/audio"
	intmusic "github.com/i-yam-jeremy/easypitch-go/internal/music"
	intpreset "github.com/i-yam-jeremy/easypitch-go/internal/preset"
	intsynth "github.com/i-yam-jeremy/easypitch-go/internal/synth"
)

// renderDevice allocates buffers for offline rendering and refuses to
// play them.
type renderDevice struct{}

func (renderDevice) CreateBuffer(channels, frames, sampleRate int) (*intaudio.Buffer, error) {
	return intaudio.NewBuffer(channels, frames, sampleRate)
}
func (renderDevice) Submit(*intaudio.Buffer) error { return errors.New("offline render cannot play") }
func (renderDevice) StopAll()                      {}
func (renderDevice) Close() error                  { return nil }

// RenderTimeline renders a whole timeline to a mono sample slice
// without touching an output device. Notes render in parallel and are
// mixed at their scheduled offsets, so instrument tails overlap the
// notes that follow exactly as they would in live playback. A nil
// instrument renders with the classic preset.
func RenderTimeline(entries []Entry, in *Instrument, sampleRate int, bpm float64) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	if in == nil {
		var err error
		in, err = intpreset.Load("classic")
		if err != nil {
			return nil, err
		}
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	eng, err := intsynth.NewEngine(renderDevice{}, sampleRate, 1)
	if err != nil {
		return nil, err
	}

	offsets := make([]int, len(entries))
	var cum float64
	for i, e := range entries {
		offsets[i] = int(math.Round(cum * float64(sampleRate)))
		cum += e.Seconds(bpm)
	}
	total := int(math.Round(cum * float64(sampleRate)))
	tailFrames := int(math.Round(in.Tail() * float64(sampleRate)))
	out := make([]float32, total+tailFrames)

	bufs := make([]*intaudio.Buffer, len(entries))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, e := range entries {
		if e.Kind != intmusic.KindNote {
			continue
		}
		g.Go(func() error {
			buf, err := eng.RenderEntry(in, e, bpm)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Mix sequentially by index so the result is deterministic.
	for i, buf := range bufs {
		if buf == nil {
			continue
		}
		mixAt(out, buf.Channel(0), offsets[i])
	}
	return out, nil
}

// RenderMelody renders melody notation to a mono sample slice.
func RenderMelody(text string, in *Instrument, sampleRate int, bpm float64) ([]float32, error) {
	entries, err := intmusic.ParseMelody(text)
	if err != nil {
		return nil, err
	}
	return RenderTimeline(entries, in, sampleRate, bpm)
}

func mixAt(dst, src []float32, offset int) {
	if offset >= len(dst) {
		return
	}
	n := len(src)
	if offset+n > len(dst) {
		n = len(dst) - offset
	}
	if n <= 0 {
		return
	}
	vek32.Add_Inplace(dst[offset:offset+n], src[:n])
}

// NormalizeSamples rescales samples in place so their peak amplitude
// sits at target. Silence is left untouched.
func NormalizeSamples(samples []float32, target float32) {
	intaudio.Normalize(samples, target)
}

// EncodeWAVFloat32LE encodes interleaved samples as an IEEE float32
// little-endian WAV byte stream.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// WriteWAVFile writes mono samples to path as a float32 WAV file,
// duplicating the track across the requested channel count.
func WriteWAVFile(path string, mono []float32, sampleRate int, channels int) error {
	if channels <= 0 {
		return errors.New("channel count must be positive")
	}
	samples := mono
	if channels > 1 {
		samples = make([]float32, 0, len(mono)*channels)
		for _, s := range mono {
			for c := 0; c < channels; c++ {
				samples = append(samples, s)
			}
		}
	}
	return os.WriteFile(path, EncodeWAVFloat32LE(samples, sampleRate, channels), 0o644)
}
