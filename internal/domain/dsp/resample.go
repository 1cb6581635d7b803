package dsp

import "math"

// zeroCrossings is the half-width of the sinc kernel, in zero crossings of the
// lower of the two Nyquist frequencies.
const zeroCrossings = 16

// Resample converts x from one rate to another with a Hann-windowed sinc
// interpolator. The output has round(len(x)*to/from) samples.
func Resample(x []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}

	n := int(math.Round(float64(len(x)) * float64(to) / float64(from)))
	out := make([]float32, n)
	if len(x) == 0 {
		return out
	}

	ratio := float64(to) / float64(from)
	cutoff := math.Min(1, ratio)
	halfWidth := zeroCrossings / cutoff

	for i := range out {
		t := float64(i) / ratio
		lo := int(math.Ceil(t - halfWidth))
		hi := int(math.Floor(t + halfWidth))

		// Weights are normalized over the full kernel; taps outside x read as zero.
		var acc, wsum float64
		for j := lo; j <= hi; j++ {
			d := t - float64(j)
			w := sinc(cutoff*d) * hann(d/halfWidth)
			wsum += w
			if j >= 0 && j < len(x) {
				acc += w * float64(x[j])
			}
		}
		if wsum != 0 {
			out[i] = float32(acc / wsum)
		}
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hann(u float64) float64 {
	if u <= -1 || u >= 1 {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*u))
}
