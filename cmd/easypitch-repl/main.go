package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	easypitch "github.com/i-yam-jeremy/easypitch-go"
)

var errQuit = errors.New("quit")

type env struct {
	player     *easypitch.Player
	sampleRate int
	bpm        float64
	presetName string
	out        io.Writer
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate in Hz")
		bpm        = flag.Float64("bpm", 120, "tempo in beats per minute")
		presetName = flag.String("preset", "classic", "starting instrument preset")
	)
	flag.Parse()

	pl, err := easypitch.NewPlayer(*sampleRate, easypitch.WithPreset(*presetName))
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()

	e := &env{
		player:     pl,
		sampleRate: *sampleRate,
		bpm:        *bpm,
		presetName: *presetName,
	}
	if err := repl(e); err != nil && err != io.EOF {
		log.Fatal(err)
	}
}

func repl(e *env) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "easypitch> ",
		AutoComplete: completer(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	e.out = rl.Stdout()

	go watchEvents(e.player.Watch(), rl.Stdout())

	fmt.Fprintln(e.out, `type "help" for commands`)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Fprintln(e.out, err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := eval(e, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(e.out, err)
		}
	}
}

func completer() readline.AutoCompleter {
	presetItems := readline.PcItemDynamic(func(string) []string {
		return easypitch.Presets()
	})
	return readline.NewPrefixCompleter(
		readline.PcItem("play"),
		readline.PcItem("note"),
		readline.PcItem("stop"),
		readline.PcItem("bpm"),
		readline.PcItem("preset", presetItems),
		readline.PcItem("presets"),
		readline.PcItem("vol"),
		readline.PcItem("wav"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func watchEvents(events <-chan easypitch.PlaybackEvent, out io.Writer) {
	for ev := range events {
		switch ev.Kind {
		case easypitch.EventNoteFailed:
			fmt.Fprintf(out, "note %d failed: %v\n", ev.Index, ev.Err)
		case easypitch.EventPlaybackEnded:
			fmt.Fprintln(out, "playback ended")
		}
	}
}

type command struct {
	name  string
	help  string
	run   func(*env, []string) error
	arity int // -n means len(args) must be >= n
}

// commands is populated in init so that helpCommand, which iterates it,
// can appear in the table without a package initialization cycle.
var commands []command

func init() {
	commands = []command{
		{"play", "play <melody>: play melody notation, e.g. play c4/4 e4/4 g4/2", playCommand, -1},
		{"note", "note <pitch> <octave> [seconds]: play a single pitch, e.g. note c# 4", noteCommand, -2},
		{"stop", "stop: stop the current playback", stopCommand, 0},
		{"bpm", "bpm <tempo>: set the tempo in beats per minute", bpmCommand, 1},
		{"preset", "preset <name>: switch the instrument preset", presetCommand, 1},
		{"presets", "presets: list the available presets", presetsCommand, 0},
		{"vol", "vol <0..1>: set the master volume", volCommand, 1},
		{"wav", "wav <path> <melody>: render melody to a WAV file", wavCommand, -2},
		{"help", "help: show this help", helpCommand, 0},
		{"quit", "quit: exit", quitCommand, 0},
	}
}

func eval(e *env, input string) error {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(args) < arity {
				return fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					cmd.name, arity, len(args))
			}
		} else if len(args) != cmd.arity {
			return fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(args))
		}
		if err := cmd.run(e, args); err != nil {
			return fmt.Errorf("%s: %w", cmd.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s", name)
}

func playCommand(e *env, args []string) error {
	return e.player.PlayMelody(strings.Join(args, " "), e.bpm)
}

func noteCommand(e *env, args []string) error {
	octave, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad octave %q", args[1])
	}
	seconds := 0.5
	if len(args) > 2 {
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("bad duration %q", args[2])
		}
		seconds = v
	}
	return e.player.PlayNote(args[0], octave, seconds)
}

func stopCommand(e *env, args []string) error {
	e.player.Stop()
	return nil
}

func bpmCommand(e *env, args []string) error {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad tempo %q", args[0])
	}
	if v <= 0 {
		return fmt.Errorf("tempo must be positive, got %v", v)
	}
	e.bpm = v
	fmt.Fprintf(e.out, "bpm set to %v\n", v)
	return nil
}

func presetCommand(e *env, args []string) error {
	if err := e.player.SetPreset(args[0]); err != nil {
		return err
	}
	e.presetName = args[0]
	fmt.Fprintf(e.out, "preset set to %s\n", args[0])
	return nil
}

func presetsCommand(e *env, args []string) error {
	for _, name := range easypitch.Presets() {
		marker := " "
		if name == e.presetName {
			marker = "*"
		}
		fmt.Fprintf(e.out, "%s %s\n", marker, name)
	}
	return nil
}

func volCommand(e *env, args []string) error {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad volume %q", args[0])
	}
	e.player.SetMasterVolume(v)
	fmt.Fprintf(e.out, "volume set to %v\n", e.player.MasterVolume())
	return nil
}

func wavCommand(e *env, args []string) error {
	path, melody := args[0], strings.Join(args[1:], " ")
	inst, err := easypitch.Preset(e.presetName)
	if err != nil {
		return err
	}
	samples, err := easypitch.RenderMelody(melody, inst, e.sampleRate, e.bpm)
	if err != nil {
		return err
	}
	if err := easypitch.WriteWAVFile(path, samples, e.sampleRate, 2); err != nil {
		return err
	}
	seconds := float64(len(samples)) / float64(e.sampleRate)
	fmt.Fprintf(e.out, "wrote %s (%.2fs)\n", path, seconds)
	return nil
}

func helpCommand(e *env, args []string) error {
	for _, cmd := range commands {
		fmt.Fprintf(e.out, "  %s\n", cmd.help)
	}
	return nil
}

func quitCommand(e *env, args []string) error {
	return errQuit
}
