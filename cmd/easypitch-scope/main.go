package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/viterin/vek/vek32"

	easypitch "github.com/i-yam-jeremy/easypitch-go"
)

const (
	windowW = 800
	windowH = 480

	scopeSampleRate = 48000
	ringBufLen      = 65536
	traceLen        = 2048

	defaultMelody = "c4/4 e4/4 g4/4 c5/4 g4/4 e4/4 c4/2"
)

var (
	bgColor     = color.RGBA{14, 16, 22, 255}
	gridColor   = color.RGBA{40, 44, 58, 255}
	waveColor   = color.RGBA{80, 200, 255, 220}
	peakColor   = color.RGBA{255, 170, 60, 220}
	rmsColor    = color.RGBA{90, 220, 120, 220}
	statusColor = color.RGBA{24, 24, 32, 255}
)

type analyzer struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
}

func newAnalyzer() *analyzer {
	return &analyzer{ring: make([]float32, ringBufLen)}
}

// Tap runs on the scheduling goroutine. Keep it minimal: just copy into
// the ring.
func (a *analyzer) Tap(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.writePos] = s
		a.writePos = (a.writePos + 1) % ringBufLen
	}
	a.mu.Unlock()
}

// Snapshot copies the n most recently tapped samples.
func (a *analyzer) Snapshot(n int) []float32 {
	if n > ringBufLen {
		n = ringBufLen
	}
	out := make([]float32, n)
	a.mu.Lock()
	start := (a.writePos - n + ringBufLen*2) % ringBufLen
	for i := range out {
		out[i] = a.ring[(start+i)%ringBufLen]
	}
	a.mu.Unlock()
	return out
}

type game struct {
	player   *easypitch.Player
	events   <-chan easypitch.PlaybackEvent
	analyzer *analyzer

	melody string
	bpm    float64

	presets   []string
	presetIdx int
	volume    float64

	trace     []float32
	wavePeak  float64
	levelPeak float32
	levelRMS  float32

	status  string
	playing bool
}

func newGame(melody string, bpm float64, presetName string) (*game, error) {
	a := newAnalyzer()
	pl, err := easypitch.NewPlayer(scopeSampleRate,
		easypitch.WithPreset(presetName),
		easypitch.WithSampleTap(a.Tap),
	)
	if err != nil {
		return nil, err
	}
	presets := easypitch.Presets()
	idx := 0
	for i, name := range presets {
		if name == presetName {
			idx = i
		}
	}
	return &game{
		player:    pl,
		events:    pl.Watch(),
		analyzer:  a,
		melody:    melody,
		bpm:       bpm,
		presets:   presets,
		presetIdx: idx,
		volume:    1,
		status:    "space: play  p: preset  up/down: volume  s: stop",
	}, nil
}

func (g *game) Update() error {
	g.pollEvents()
	g.handleKeys()

	g.trace = g.analyzer.Snapshot(traceLen)
	abs := vek32.Abs(g.trace)
	g.levelPeak = vek32.Max(abs)
	g.levelRMS = float32(rms(g.trace))
	return nil
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	mean := vek32.Mean(vek32.Mul(samples, samples))
	return math.Sqrt(float64(mean))
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case easypitch.EventNoteFailed:
				g.status = fmt.Sprintf("note %d failed: %v", ev.Index, ev.Err)
			case easypitch.EventPlaybackEnded:
				g.playing = false
				g.status = "playback ended"
			case easypitch.EventPlaybackStopped:
				g.playing = false
				g.status = "stopped"
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if err := g.player.PlayMelody(g.melody, g.bpm); err != nil {
			g.status = err.Error()
			return
		}
		g.playing = true
		g.status = "playing [" + g.presets[g.presetIdx] + "]"
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.presetIdx = (g.presetIdx + 1) % len(g.presets)
		name := g.presets[g.presetIdx]
		if err := g.player.SetPreset(name); err != nil {
			g.status = err.Error()
			return
		}
		g.status = "preset: " + name
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.player.Stop()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.setVolume(g.volume + 0.05)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.setVolume(g.volume - 0.05)
	}
}

func (g *game) setVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	g.volume = v
	g.player.SetMasterVolume(v)
	g.status = fmt.Sprintf("volume: %d%%", int(v*100+0.5))
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	waveH := windowH - 120
	g.drawWaveform(screen, windowW, waveH)

	ebitenutil.DrawRect(screen, 0, float64(waveH), windowW, 1, gridColor)
	g.drawLevels(screen, waveH+12)

	ebitenutil.DrawRect(screen, 0, windowH-24, windowW, 24, statusColor)
	ebitenutil.DebugPrintAt(screen, g.status, 8, windowH-20)
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("preset %s  bpm %.0f  vol %d%%", g.presets[g.presetIdx], g.bpm, int(g.volume*100+0.5)),
		8, 8)
}

func (g *game) drawWaveform(dst *ebiten.Image, width, height int) {
	samples := g.trace
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, gridColor)

	// Auto-gain: track peak with fast attack, slow release.
	target := float64(g.levelPeak)
	if target < 0.01 {
		target = 0.01
	}
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	if g.wavePeak < 0.01 {
		g.wavePeak = 0.01
	}
	gain := float64(midY-2) / g.wavePeak

	// Zero-crossing trigger stabilizes the display.
	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := len(samples) - trigger
	if visible < 2 {
		visible = 2
	}

	prevX := 0
	prevY := midY - int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := trigger + px*visible/width
		if si >= len(samples) {
			si = len(samples) - 1
		}
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX = px
		prevY = y
	}
}

func findZeroCrossing(samples []float32, searchLen int) int {
	if searchLen > len(samples)-2 {
		searchLen = len(samples) - 2
	}
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawLevels(dst *ebiten.Image, y int) {
	barW := float64(windowW - 120)
	peakW := barW * float64(clamp32(g.levelPeak, 0, 1))
	rmsW := barW * float64(clamp32(g.levelRMS, 0, 1))

	ebitenutil.DebugPrintAt(dst, "peak", 8, y)
	ebitenutil.DrawRect(dst, 60, float64(y)+2, barW, 10, gridColor)
	ebitenutil.DrawRect(dst, 60, float64(y)+2, peakW, 10, peakColor)

	ebitenutil.DebugPrintAt(dst, "rms", 8, y+20)
	ebitenutil.DrawRect(dst, 60, float64(y)+22, barW, 10, gridColor)
	ebitenutil.DrawRect(dst, 60, float64(y)+22, rmsW, 10, rmsColor)
}

func clamp32(v, minV, maxV float32) float32 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func main() {
	var (
		melody     = flag.String("melody", defaultMelody, "melody notation to play")
		melodyPath = flag.String("file", "", "path to a melody file")
		bpm        = flag.Float64("bpm", 120, "tempo in beats per minute")
		presetName = flag.String("preset", "classic", "starting instrument preset")
	)
	flag.Parse()

	melodyText := *melody
	if strings.TrimSpace(*melodyPath) != "" {
		data, err := os.ReadFile(*melodyPath)
		if err != nil {
			log.Fatal(err)
		}
		melodyText = string(data)
	}

	g, err := newGame(melodyText, *bpm, *presetName)
	if err != nil {
		log.Fatal(err)
	}
	defer g.player.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("easypitch scope")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
