package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noise(r *rand.Rand, n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((r.Float64()*2 - 1) * amp)
	}
	return out
}

func tone(n, rate int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestNormalizeSilenceStaysSilent(t *testing.T) {
	for _, n := range []int{0, 1, 100, 8000, 20000} {
		sig := Normalize(make([]float32, n), models.CanonicalSampleRate)
		want := n
		if want < models.MinCanonicalSamples {
			want = models.MinCanonicalSamples
		}
		require.Len(t, sig.Samples, want)
		assert.Equal(t, float32(0), Peak(sig.Samples))
		assert.Equal(t, models.CanonicalSampleRate, sig.SampleRate)
	}
}

func TestNormalizeEmptyInputIsPaddedSilence(t *testing.T) {
	sig := Normalize(nil, 44100)
	assert.Equal(t, make([]float32, models.MinCanonicalSamples), sig.Samples)
}

func TestNormalizeSingleImpulse(t *testing.T) {
	x := make([]float32, 16000)
	x[5000] = 0.5

	sig := Normalize(x, models.CanonicalSampleRate)
	assert.InDelta(t, 0.95, Peak(sig.Samples), 1e-6)
	assert.GreaterOrEqual(t, len(sig.Samples), models.MinCanonicalSamples)
	assert.Equal(t, float32(0.5), x[5000], "input must not be modified")
}

func TestNormalizeQuietAndLoudReachSamePeak(t *testing.T) {
	for _, amp := range []float64{0.001, 0.5, 1.0, 3.0} {
		sig := Normalize(tone(16000, 16000, 440, amp), 16000)
		assert.InDelta(t, 0.95, Peak(sig.Samples), 1e-6, "amp=%v", amp)
	}
}

func TestNormalizeIdempotentOnCanonicalInput(t *testing.T) {
	first := Normalize(tone(32000, 16000, 300, 0.7), 16000)
	second := Normalize(first.Samples, first.SampleRate)

	require.Len(t, second.Samples, len(first.Samples))
	assert.InDeltaSlice(t, toF64(first.Samples), toF64(second.Samples), 1e-6)
}

func TestNormalizeNeverShorterThanFloor(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, n := range []int{10, 500, 4000, 7999} {
		for _, rate := range []int{8000, 16000, 22050, 48000} {
			sig := Normalize(noise(r, n, 0.2), rate)
			assert.GreaterOrEqual(t, len(sig.Samples), models.MinCanonicalSamples)
		}
	}
}

func TestNormalizePadsOnTheLeft(t *testing.T) {
	x := tone(1600, 16000, 440, 0.5)
	sig := Normalize(x, 16000)

	require.Len(t, sig.Samples, models.MinCanonicalSamples)
	for _, v := range sig.Samples[:models.MinCanonicalSamples-len(x)] {
		require.Equal(t, float32(0), v)
	}
	assert.NotZero(t, Peak(sig.Samples[models.MinCanonicalSamples-len(x):]))
}

func TestNormalizeTrimsAroundSpeech(t *testing.T) {
	const rate = 44100
	r := rand.New(rand.NewSource(42))

	x := make([]float32, 3*rate)
	copy(x[rate:2*rate], noise(r, rate, 0.4))

	resampled := Resample(x, rate, models.CanonicalSampleRate)
	require.Len(t, resampled, 48000)

	PeakNormalize(resampled)
	start, end := silenceBounds(resampled)
	assert.InDelta(t, 16000, start, HopLength)
	assert.InDelta(t, 32000, end, HopLength)

	sig := Normalize(x, rate)
	assert.Len(t, sig.Samples, end-start)
	assert.InDelta(t, 0.95, Peak(sig.Samples), 1e-6)
}

func TestResampleLength(t *testing.T) {
	cases := []struct{ n, from, to, want int }{
		{44100, 44100, 16000, 16000},
		{1000, 8000, 16000, 2000},
		{3, 44100, 16000, 1},
		{0, 48000, 16000, 0},
		{22050, 22050, 16000, 16000},
	}
	for _, tc := range cases {
		assert.Len(t, Resample(make([]float32, tc.n), tc.from, tc.to), tc.want)
	}
}

func TestResamplePreservesLowTone(t *testing.T) {
	in := tone(48000, 48000, 200, 0.5)
	out := Resample(in, 48000, 16000)

	// Away from the edges the tone should survive with its amplitude intact.
	mid := out[1000 : len(out)-1000]
	assert.InDelta(t, 0.5, Peak(mid), 0.01)
}

func TestFrameEnergiesGrid(t *testing.T) {
	assert.Nil(t, FrameEnergies(nil))
	assert.Len(t, FrameEnergies(make([]float32, HopLength-1)), 1)
	assert.Len(t, FrameEnergies(make([]float32, 10*HopLength)), 11)
}

func TestTrimSilenceKeepsAllWhenNothingStandsOut(t *testing.T) {
	x := tone(20000, 16000, 500, 0.3)
	assert.Len(t, TrimSilence(x), len(x))
}

func toF64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
