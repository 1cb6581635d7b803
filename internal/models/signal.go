package models

// CanonicalSampleRate is the only rate the inference backend accepts.
const CanonicalSampleRate = 16000

// MinCanonicalSamples is 0.5 s at CanonicalSampleRate.
const MinCanonicalSamples = CanonicalSampleRate / 2

// RawSignal is decoded mono audio at its native rate.
type RawSignal struct {
	Samples    []float32
	SampleRate int
}

// CanonicalSignal is mono, 16 kHz, peak <= 0.95, at least MinCanonicalSamples long.
// One per request; never cached.
type CanonicalSignal struct {
	Samples    []float32
	SampleRate int
}

func (s *CanonicalSignal) DurationSamples() int { return len(s.Samples) }

func (s *CanonicalSignal) DurationMS() int64 {
	if s.SampleRate == 0 {
		return 0
	}
	return int64(len(s.Samples)) * 1000 / int64(s.SampleRate)
}
