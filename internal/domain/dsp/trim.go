package dsp

import "math"

// FrameEnergies returns the mean power of each centered analysis frame.
// Frame k spans [k*HopLength-FrameLength/2, k*HopLength+FrameLength/2);
// samples outside x count as zero. There are 1+len(x)/HopLength frames.
func FrameEnergies(x []float32) []float64 {
	if len(x) == 0 {
		return nil
	}
	frames := 1 + len(x)/HopLength
	out := make([]float64, frames)
	for k := range out {
		start := k*HopLength - FrameLength/2
		end := start + FrameLength
		if start < 0 {
			start = 0
		}
		if end > len(x) {
			end = len(x)
		}
		var sum float64
		for _, v := range x[start:end] {
			sum += float64(v) * float64(v)
		}
		out[k] = sum / FrameLength
	}
	return out
}

// TrimSilence drops leading and trailing frames more than TopDB below the
// loudest frame. When no frame carries energy, x is returned unchanged.
func TrimSilence(x []float32) []float32 {
	start, end := silenceBounds(x)
	return x[start:end]
}

// silenceBounds returns the kept range [start, end) of x.
func silenceBounds(x []float32) (int, int) {
	energy := FrameEnergies(x)

	var maxE float64
	for _, e := range energy {
		maxE = math.Max(maxE, e)
	}
	if maxE == 0 {
		return 0, len(x)
	}

	first, last := -1, -1
	for k, e := range energy {
		if e == 0 || 10*math.Log10(e/maxE) <= -TopDB {
			continue
		}
		if first < 0 {
			first = k
		}
		last = k
	}
	if first < 0 {
		return 0, len(x)
	}

	start := first * HopLength
	end := last * HopLength
	if end <= start {
		end = (last + 1) * HopLength
	}
	if last == len(energy)-1 || end > len(x) {
		end = len(x)
	}
	if start > end {
		start = end
	}
	return start, end
}
