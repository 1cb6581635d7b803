// Package dsp turns decoded audio into the canonical signal the recognizer
// expects: 16 kHz mono, peak at 0.95 of full scale, edge silence trimmed and
// never shorter than half a second.
package dsp

import (
	"math"

	"github.com/awais2281/rizqa-ai/internal/models"
)

const (
	// TargetPeak is the absolute peak after amplitude normalization.
	TargetPeak = 0.95

	// FrameLength and HopLength define the silence-trim analysis grid.
	FrameLength = 4096
	HopLength   = FrameLength / 2

	// TopDB is how far below the loudest frame a frame may fall before it
	// counts as silence.
	TopDB = 35.0
)

// Normalize resamples, scales, trims and pads samples. It does not modify
// its input. A non-positive rate is treated as already canonical.
func Normalize(samples []float32, rate int) *models.CanonicalSignal {
	out := make([]float32, len(samples))
	copy(out, samples)

	if rate > 0 && rate != models.CanonicalSampleRate {
		out = Resample(out, rate, models.CanonicalSampleRate)
	}
	PeakNormalize(out)
	out = TrimSilence(out)
	out = PadLeft(out, models.MinCanonicalSamples)

	return &models.CanonicalSignal{Samples: out, SampleRate: models.CanonicalSampleRate}
}

// PeakNormalize scales x in place so that max|x| == TargetPeak.
// All-zero input is left alone.
func PeakNormalize(x []float32) {
	peak := Peak(x)
	if peak == 0 {
		return
	}
	scale := TargetPeak / float64(peak)
	limit := float32(TargetPeak)
	for i, v := range x {
		y := float32(float64(v) * scale)
		if y > limit {
			y = limit
		} else if y < -limit {
			y = -limit
		}
		x[i] = y
	}
}

// Peak returns max|x|, or 0 for empty input.
func Peak(x []float32) float32 {
	var peak float32
	for _, v := range x {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	return peak
}

// PadLeft prepends zeros until x has at least n samples.
func PadLeft(x []float32, n int) []float32 {
	if len(x) >= n {
		return x
	}
	out := make([]float32, n)
	copy(out[n-len(x):], x)
	return out
}
