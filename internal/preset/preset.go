// Package preset ships the built-in instrument definitions. They are
// embedded as YAML and decoded once, on first use.
package preset

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/i-yam-jeremy/easypitch-go/internal/envelope"
	"github.com/i-yam-jeremy/easypitch-go/internal/synth"
)

//go:embed presets.yaml
var presetData []byte

var ErrUnknownPreset = errors.New("unknown preset")

type presetSpec struct {
	Name      string       `yaml:"name"`
	Wave      string       `yaml:"wave"`
	Overtones []float64    `yaml:"overtones"`
	Envelope  envelopeSpec `yaml:"envelope"`
	Vibrato   vibratoSpec  `yaml:"vibrato"`
	Tail      float64      `yaml:"tail"`
	Gain      float64      `yaml:"gain"`
}

type envelopeSpec struct {
	Kind   string  `yaml:"kind"`
	Attack float64 `yaml:"attack"`
	Decay  float64 `yaml:"decay"`
	Scale  float64 `yaml:"scale"`
}

type vibratoSpec struct {
	Rate  float64 `yaml:"rate"`
	Depth float64 `yaml:"depth"`
}

var (
	loadOnce    sync.Once
	instruments map[string]*synth.Instrument
	names       []string
)

// The embedded file ships with the binary, so a decode failure is a
// build defect rather than a runtime condition.
func load() {
	var specs []presetSpec
	dec := yaml.NewDecoder(bytes.NewReader(presetData))
	dec.KnownFields(true)
	if err := dec.Decode(&specs); err != nil {
		panic(fmt.Sprintf("preset: corrupt embedded presets.yaml: %v", err))
	}
	instruments = make(map[string]*synth.Instrument, len(specs))
	for _, spec := range specs {
		in, err := build(spec)
		if err != nil {
			panic(fmt.Sprintf("preset: bad preset %q: %v", spec.Name, err))
		}
		instruments[spec.Name] = in
		names = append(names, spec.Name)
	}
	sort.Strings(names)
}

func build(spec presetSpec) (*synth.Instrument, error) {
	wave, err := synth.ParseWaveform(spec.Wave)
	if err != nil {
		return nil, err
	}
	var opts []synth.InstrumentOption
	switch spec.Envelope.Kind {
	case "":
	case "linear":
		opts = append(opts, synth.WithEnvelope(envelope.NewLinear(spec.Envelope.Attack, spec.Envelope.Decay)))
	case "lognormal":
		env := envelope.DefaultLogNormal()
		if spec.Envelope.Scale > 0 {
			env.Scale = spec.Envelope.Scale
		}
		opts = append(opts, synth.WithEnvelope(env))
	default:
		return nil, fmt.Errorf("unknown envelope kind %q", spec.Envelope.Kind)
	}
	if spec.Vibrato.Depth != 0 {
		opts = append(opts, synth.WithVibrato(synth.Vibrato{Rate: spec.Vibrato.Rate, Depth: spec.Vibrato.Depth}))
	}
	if spec.Tail > 0 {
		opts = append(opts, synth.WithTail(spec.Tail))
	}
	if spec.Gain > 0 {
		opts = append(opts, synth.WithGain(spec.Gain))
	}
	return synth.NewInstrument(spec.Name, wave, spec.Overtones, opts...)
}

// Names returns the built-in preset names in sorted order.
func Names() []string {
	loadOnce.Do(load)
	return append([]string(nil), names...)
}

// Load returns the named built-in instrument. Lookup is
// case-insensitive. Instruments are immutable, so callers share one
// instance.
func Load(name string) (*synth.Instrument, error) {
	loadOnce.Do(load)
	in, ok := instruments[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return in, nil
}
