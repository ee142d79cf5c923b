// Package sequencer schedules timeline entries against a clock. Each
// entry is submitted to a NotePlayer at its scheduled moment and the
// next step is armed with time.AfterFunc, so playback costs one timer
// rather than a busy goroutine.
package sequencer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/i-yam-jeremy/easypitch-go/internal/music"
)

// NotePlayer renders and submits one note for playback. Submission is
// fire-and-forget: PlayEntry returns once the audio is handed to the
// device, not when it finishes sounding. Rest entries never reach the
// player; they only advance the timing chain.
type NotePlayer interface {
	PlayEntry(entry music.Entry) error
}

// State describes where a sequencer is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateDone
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateDone:
		return "done"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventEntryStarted EventKind = iota
	EventEntryFailed
	EventPlaybackEnded
	EventStopped
)

// Event reports one lifecycle moment. Index and Entry are set for the
// entry events; Err is set when Kind is EventEntryFailed.
type Event struct {
	Kind  EventKind
	Index int
	Entry music.Entry
	Err   error
}

type Options struct {
	Clock   Clock       // scheduling clock; nil means the system clock
	OnEvent func(Event) // called from the scheduling goroutine; keep it quick
	OnDone  func()      // called exactly once when the timeline runs to completion; never after Stop
}

// Sequencer plays a validated timeline exactly once.
type Sequencer struct {
	entries []music.Entry
	player  NotePlayer
	bpm     float64
	clock   Clock
	onEvent func(Event)
	onDone  func()

	mu    sync.Mutex
	state State
	index int
	timer Timer
	done  chan struct{}
}

func New(entries []music.Entry, player NotePlayer, bpm float64) (*Sequencer, error) {
	return NewWithOptions(entries, player, bpm, Options{})
}

func NewWithOptions(entries []music.Entry, player NotePlayer, bpm float64, opts Options) (*Sequencer, error) {
	if player == nil {
		return nil, errors.New("nil note player")
	}
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Sequencer{
		entries: append([]music.Entry(nil), entries...),
		player:  player,
		bpm:     bpm,
		clock:   clock,
		onEvent: opts.OnEvent,
		onDone:  opts.OnDone,
		done:    make(chan struct{}),
	}, nil
}

// Len reports the number of timeline entries.
func (s *Sequencer) Len() int { return len(s.entries) }

// Duration reports the scheduled length of the whole timeline.
func (s *Sequencer) Duration() time.Duration {
	return secondsToDuration(music.TotalSeconds(s.entries, s.bpm))
}

// Start begins playback and returns immediately; the first entry is
// submitted before Start returns. A sequencer plays once, so starting it
// a second time is an error, as is starting one that was stopped.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("sequencer already %s", state)
	}
	s.state = StatePlaying
	s.mu.Unlock()
	s.step()
	return nil
}

// step submits the entry at the current index and arms the timer that
// will advance past it. When a note fails the failure is reported and
// the chain keeps going; one bad note never silences the rest of the
// timeline.
func (s *Sequencer) step() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	if s.index >= len(s.entries) {
		s.state = StateDone
		close(s.done)
		onDone := s.onDone
		s.mu.Unlock()
		s.emit(Event{Kind: EventPlaybackEnded})
		if onDone != nil {
			onDone()
		}
		return
	}
	index := s.index
	entry := s.entries[index]
	s.mu.Unlock()

	var playErr error
	if entry.Kind == music.KindNote {
		playErr = s.player.PlayEntry(entry)
	}

	s.mu.Lock()
	if s.state != StatePlaying {
		// Stopped while the entry was rendering.
		s.mu.Unlock()
		return
	}
	s.index++
	s.timer = s.clock.AfterFunc(secondsToDuration(entry.Seconds(s.bpm)), s.step)
	s.mu.Unlock()

	if playErr != nil {
		s.emit(Event{Kind: EventEntryFailed, Index: index, Entry: entry, Err: playErr})
	} else {
		s.emit(Event{Kind: EventEntryStarted, Index: index, Entry: entry})
	}
}

// Stop cancels playback. It is safe to call at any time and from any
// goroutine, and repeat calls are no-ops. A stopped sequencer fires
// EventStopped but never the completion callback.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.state == StateDone || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	fireEvent := s.state == StatePlaying
	s.state = StateStopped
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	close(s.done)
	s.mu.Unlock()
	if fireEvent {
		s.emit(Event{Kind: EventStopped})
	}
}

// Wait blocks until the timeline completes or is stopped.
func (s *Sequencer) Wait() { <-s.done }

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Index reports the position of the next entry to be scheduled.
func (s *Sequencer) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Sequencer) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
