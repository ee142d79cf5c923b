package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	easypitch "github.com/i-yam-jeremy/easypitch-go"
)

const defaultMelody = "c4/4 c4/4 g4/4 g4/4 a4/4 a4/4 g4/2 f4/4 f4/4 e4/4 e4/4 d4/4 d4/4 c4/2"

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 44100, "output sample rate")
		bpm         = flag.Float64("bpm", 120, "tempo in beats per minute")
		presetName  = flag.String("preset", "classic", "instrument preset (see -list-presets)")
		melody      = flag.String("melody", "", "inline melody notation, e.g. \"c4/4 e4/4 g4/2\"")
		melodyPath  = flag.String("file", "", "path to a melody file")
		volume      = flag.Float64("volume", 1.0, "master volume scalar")
		wavPath     = flag.String("wav", "", "render to a WAV file instead of playing")
		listPresets = flag.Bool("list-presets", false, "print built-in preset names and exit")
	)
	flag.Parse()

	if *listPresets {
		for _, name := range easypitch.Presets() {
			fmt.Println(name)
		}
		return
	}

	melodyText, err := resolveMelodyInput(*melodyPath, *melody)
	if err != nil {
		log.Fatal(err)
	}

	if *wavPath != "" {
		in, err := easypitch.Preset(*presetName)
		if err != nil {
			log.Fatal(err)
		}
		samples, err := easypitch.RenderMelody(melodyText, in, *sampleRate, *bpm)
		if err != nil {
			log.Fatal(err)
		}
		if err := easypitch.WriteWAVFile(*wavPath, samples, *sampleRate, 2); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.2fs)\n", *wavPath, float64(len(samples))/float64(*sampleRate))
		return
	}

	pl, err := easypitch.NewPlayer(*sampleRate,
		easypitch.WithPreset(*presetName),
		easypitch.WithMasterVolume(*volume),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()

	ch := pl.Watch()
	if err := pl.PlayMelody(melodyText, *bpm); err != nil {
		log.Fatal(err)
	}
	for event := range ch {
		switch event.Kind {
		case easypitch.EventNoteFailed:
			fmt.Printf("note %d failed: %v\n", event.Index, event.Err)
		case easypitch.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case easypitch.EventPlaybackStopped:
			fmt.Println("playback stopped")
			goto done
		}
	}
done:
	pl.Wait()
}

func resolveMelodyInput(path string, inline string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return defaultMelody, nil
}
