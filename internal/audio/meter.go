package audio

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs(samples))
}

// RMS returns the root mean square level.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(vek32.Mean(vek32.Mul(samples, samples)))))
}

// Normalize rescales samples in place so the peak lands on target.
// Silence is left untouched.
func Normalize(samples []float32, target float32) {
	peak := Peak(samples)
	if peak == 0 || target <= 0 {
		return
	}
	scale(samples, target/peak)
}

func scale(samples []float32, factor float32) {
	if len(samples) == 0 {
		return
	}
	vek32.MulNumber_Inplace(samples, factor)
}
