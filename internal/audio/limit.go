package audio

import "math"

// limit soft-clips samples in place when the block leaves the legal
// range. Overlapping submissions sum on the mixer, so stacked notes can
// push past full scale; the tanh curve is applied to the whole block so
// the shape stays continuous instead of folding at the rails.
func limit(samples []float32) {
	if Peak(samples) <= 1 {
		return
	}
	for i, s := range samples {
		samples[i] = float32(math.Tanh(float64(s)))
	}
}
