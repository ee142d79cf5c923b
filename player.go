package easypitch

import (
	"errors"
	"sync"

	intaudio "github.com/i-yam-jeremy/easypitch-go/internal/audio"
	intenv "github.com/i-yam-jeremy/easypitch-go/internal/envelope"
	intmusic "github.com/i-yam-jeremy/easypitch-go/internal/music"
	intpreset "github.com/i-yam-jeremy/easypitch-go/internal/preset"
	intseq "github.com/i-yam-jeremy/easypitch-go/internal/sequencer"
	intsynth "github.com/i-yam-jeremy/easypitch-go/internal/synth"
)

// Aliases so callers can work with the root package alone.
type (
	Entry            = intmusic.Entry
	EntryKind        = intmusic.EntryKind
	Instrument       = intsynth.Instrument
	InstrumentOption = intsynth.InstrumentOption
	Waveform         = intsynth.Waveform
	Vibrato          = intsynth.Vibrato
	Buffer           = intaudio.Buffer
	Device           = intaudio.Device
	Clock            = intseq.Clock
	Timer            = intseq.Timer
)

const (
	KindNote = intmusic.KindNote
	KindRest = intmusic.KindRest
)

const (
	Square   = intsynth.Square
	Triangle = intsynth.Triangle
	Sine     = intsynth.Sine
)

var (
	ErrUnknownPitch    = intmusic.ErrUnknownPitch
	ErrInvalidDuration = intmusic.ErrInvalidDuration
	ErrUnknownWaveform = intsynth.ErrUnknownWaveform
	ErrUnknownPreset   = intpreset.ErrUnknownPreset
)

// Note builds a timeline entry for a pitched note. duration is in whole
// notes, so a quarter note is 0.25.
func Note(pitch string, octave int, duration float64) Entry {
	return intmusic.Note(pitch, octave, duration)
}

// Rest builds a silent timeline entry. duration is in whole notes.
func Rest(duration float64) Entry {
	return intmusic.Rest(duration)
}

// ParseMelody parses whitespace-separated melody notation such as
// "c4/4 e4/4 g4/2. r/4 bb3" into a timeline.
func ParseMelody(text string) ([]Entry, error) {
	return intmusic.ParseMelody(text)
}

// Frequency returns the frequency in Hz of a pitch name in an octave.
func Frequency(pitch string, octave int) (float64, error) {
	return intmusic.Frequency(pitch, octave)
}

// PitchNames returns every pitch spelling Frequency accepts.
func PitchNames() []string {
	return intmusic.PitchNames()
}

// ParseWaveform resolves a base wave shape by name: "square",
// "triangle", or "sine".
func ParseWaveform(s string) (Waveform, error) {
	return intsynth.ParseWaveform(s)
}

// NewInstrument builds an instrument from a base wave shape and overtone
// weights. overtones[i] weighs the partial at (i+1) times the
// fundamental; weights are normalized, so only their ratios matter.
func NewInstrument(name string, wave Waveform, overtones []float64, opts ...InstrumentOption) (*Instrument, error) {
	return intsynth.NewInstrument(name, wave, overtones, opts...)
}

// WithLinearEnvelope shapes notes with a piecewise-linear envelope:
// ramp up until attack, hold at full amplitude until decay, ramp down
// to the end. attack and decay are fractions of the note duration.
func WithLinearEnvelope(attack, decay float64) InstrumentOption {
	return intsynth.WithEnvelope(intenv.NewLinear(attack, decay))
}

// WithLogNormalEnvelope shapes notes with a log-normal envelope: a fast
// percussive rise peaking at 1/scale seconds followed by a long decay.
// A scale at or below zero selects the default.
func WithLogNormalEnvelope(scale float64) InstrumentOption {
	env := intenv.DefaultLogNormal()
	if scale > 0 {
		env.Scale = scale
	}
	return intsynth.WithEnvelope(env)
}

// WithVibrato applies periodic pitch modulation. Rate is in Hz, Depth
// in semitones.
func WithVibrato(v Vibrato) InstrumentOption {
	return intsynth.WithVibrato(v)
}

// WithTail renders extra seconds past each note's scheduled slot so
// slow envelopes can ring out under the following notes.
func WithTail(seconds float64) InstrumentOption {
	return intsynth.WithTail(seconds)
}

// WithGain scales the instrument's output amplitude.
func WithGain(gain float64) InstrumentOption {
	return intsynth.WithGain(gain)
}

// Presets returns the names of the built-in instruments.
func Presets() []string {
	return intpreset.Names()
}

// Preset returns a built-in instrument by name.
func Preset(name string) (*Instrument, error) {
	return intpreset.Load(name)
}

// PlaybackEvent carries sequencing events from Watch().
type PlaybackEvent struct {
	Kind  int // EventNoteStarted, EventNoteFailed, EventPlaybackEnded, or EventPlaybackStopped
	Index int // timeline position for note events
	Err   error
}

const (
	EventNoteStarted int = iota
	EventNoteFailed
	EventPlaybackEnded
	EventPlaybackStopped
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	channels  int
	volume    float64
	preset    string
	inst      *intsynth.Instrument
	device    intaudio.Device
	clock     intseq.Clock
	sampleTap func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{channels: 2, volume: 1, preset: "classic"}
}

// WithPreset selects the built-in instrument the player starts with.
func WithPreset(name string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.preset = name
	}
}

// WithInstrument sets the instrument the player starts with, overriding
// any preset choice.
func WithInstrument(in *Instrument) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.inst = in
	}
}

// WithChannels sets how many channels rendered buffers carry.
func WithChannels(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.channels = n
	}
}

// WithMasterVolume sets the initial volume scalar. 1.0 is default.
func WithMasterVolume(volume float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = volume
	}
}

// WithDevice plays through the given device instead of opening the
// default output. The player takes ownership and closes it on Close.
func WithDevice(dev Device) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.device = dev
	}
}

// WithClock schedules note timing on the given clock instead of the
// system clock.
func WithClock(c Clock) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.clock = c
	}
}

// WithSampleTap installs a callback invoked with each rendered buffer's
// first channel after submission. The callback runs on the scheduling
// goroutine; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type gainSetter interface {
	SetMasterGain(gain float64)
}

// tapDevice forwards the first channel of every submitted buffer to a
// callback once the wrapped device accepts it.
type tapDevice struct {
	intaudio.Device
	tap func([]float32)
}

func (d *tapDevice) Submit(buf *intaudio.Buffer) error {
	err := d.Device.Submit(buf)
	if err == nil {
		d.tap(buf.Channel(0))
	}
	return err
}

// Player renders notes through an output device and sequences melodies
// against a clock.
type Player struct {
	sampleRate int
	channels   int
	dev        intaudio.Device
	gain       gainSetter
	clock      intseq.Clock

	mu     sync.Mutex
	engine *intsynth.Engine
	inst   *intsynth.Instrument
	volume float64
	seq    *intseq.Sequencer
	closed bool

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	inst := cfg.inst
	if inst == nil {
		var err error
		inst, err = intpreset.Load(cfg.preset)
		if err != nil {
			return nil, err
		}
	}

	dev := cfg.device
	if dev == nil {
		var err error
		dev, err = intaudio.NewOutput(sampleRate)
		if err != nil {
			return nil, err
		}
	}
	gain, _ := dev.(gainSetter)
	if cfg.sampleTap != nil {
		dev = &tapDevice{Device: dev, tap: cfg.sampleTap}
	}

	engine, err := intsynth.NewEngine(dev, sampleRate, cfg.channels)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	clock := cfg.clock
	if clock == nil {
		clock = intseq.SystemClock()
	}

	p := &Player{
		sampleRate: sampleRate,
		channels:   cfg.channels,
		dev:        dev,
		gain:       gain,
		clock:      clock,
		engine:     engine,
		inst:       inst,
		volume:     1,
	}
	p.SetMasterVolume(cfg.volume)
	return p, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }
func (p *Player) Channels() int   { return p.channels }

// notePlayer resolves the active instrument at submission time, so an
// instrument swap applies to the remainder of a playing timeline.
type notePlayer struct {
	p   *Player
	bpm float64
}

func (np *notePlayer) PlayEntry(entry intmusic.Entry) error {
	np.p.mu.Lock()
	engine, inst := np.p.engine, np.p.inst
	np.p.mu.Unlock()
	return engine.PlayEntry(inst, entry, np.bpm)
}

// Play starts a timeline at the given tempo, replacing any playback
// already in flight. It returns once the first entry is submitted;
// watch for EventPlaybackEnded or call Wait to learn when the timeline
// finishes.
func (p *Player) Play(entries []Entry, bpm float64) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("player is closed")
	}
	if old := p.seq; old != nil {
		p.seq = nil
		old.Stop()
		p.dev.StopAll()
	}
	seq, err := intseq.NewWithOptions(entries, &notePlayer{p: p, bpm: bpm}, bpm, intseq.Options{
		Clock:   p.clock,
		OnEvent: p.onSeqEvent,
	})
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.seq = seq
	p.mu.Unlock()
	return seq.Start()
}

// PlayMelody parses melody notation and plays it.
func (p *Player) PlayMelody(text string, bpm float64) error {
	entries, err := intmusic.ParseMelody(text)
	if err != nil {
		return err
	}
	return p.Play(entries, bpm)
}

// PlayNote renders a single note and submits it immediately, outside
// any timeline. seconds is the sounding length.
func (p *Player) PlayNote(pitch string, octave int, seconds float64) error {
	p.mu.Lock()
	engine, inst, closed := p.engine, p.inst, p.closed
	p.mu.Unlock()
	if closed {
		return errors.New("player is closed")
	}
	freq, err := intmusic.Frequency(pitch, octave)
	if err != nil {
		return err
	}
	buf, err := engine.Render(inst, freq, seconds)
	if err != nil {
		return err
	}
	return p.dev.Submit(buf)
}

func (p *Player) onSeqEvent(ev intseq.Event) {
	switch ev.Kind {
	case intseq.EventEntryStarted:
		p.sendEvent(PlaybackEvent{Kind: EventNoteStarted, Index: ev.Index})
	case intseq.EventEntryFailed:
		p.sendEvent(PlaybackEvent{Kind: EventNoteFailed, Index: ev.Index, Err: ev.Err})
	case intseq.EventPlaybackEnded:
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	case intseq.EventStopped:
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackStopped})
	}
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full or closed; drop event
		}
	}
}

// Stop cancels the current playback and silences the device. The
// completion events of the cancelled timeline never fire; Watch
// receives EventPlaybackStopped instead.
func (p *Player) Stop() {
	p.mu.Lock()
	seq := p.seq
	p.seq = nil
	p.mu.Unlock()
	if seq != nil {
		seq.Stop()
	}
	p.dev.StopAll()
}

// Wait blocks until the current playback ends or is stopped. It returns
// immediately when nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	if seq != nil {
		seq.Wait()
	}
}

// Playing reports whether a timeline is currently being sequenced.
func (p *Player) Playing() bool {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	return seq != nil && seq.State() == intseq.StatePlaying
}

// Watch returns a channel that receives playback events:
//   - EventNoteStarted: a timeline entry was submitted (Index set)
//   - EventNoteFailed: an entry could not be rendered (Index and Err set)
//   - EventPlaybackEnded: the timeline ran to completion
//   - EventPlaybackStopped: playback was cancelled
//
// The channel is buffered (cap 8); receive in a goroutine to avoid losing
// events. Only the most recent Watch() channel receives events; call
// Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets the runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	p.volume = volume
	gain := p.gain
	p.mu.Unlock()
	if gain != nil {
		gain.SetMasterGain(volume)
	}
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetInstrument swaps the active instrument. Notes already submitted
// keep sounding; later notes use the new instrument, including the
// remainder of a playing timeline.
func (p *Player) SetInstrument(in *Instrument) error {
	if in == nil {
		return errors.New("nil instrument")
	}
	p.mu.Lock()
	p.inst = in
	p.mu.Unlock()
	return nil
}

// SetPreset swaps the active instrument for a built-in preset.
func (p *Player) SetPreset(name string) error {
	in, err := intpreset.Load(name)
	if err != nil {
		return err
	}
	return p.SetInstrument(in)
}

// Instrument returns the active instrument.
func (p *Player) Instrument() *Instrument {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inst
}

// Close stops playback and releases the device. The player cannot be
// used afterwards.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	seq := p.seq
	p.seq = nil
	p.mu.Unlock()
	if seq != nil {
		seq.Stop()
	}
	return p.dev.Close()
}
