package infra

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// WAVDecoder reads integer PCM RIFF/WAVE files and downmixes to mono.
type WAVDecoder struct{}

func (WAVDecoder) Name() string { return "wav" }

func (WAVDecoder) Decode(_ context.Context, path string) (*models.RawSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("wav audio format %d is not integer pcm", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, errors.New("wav declares no channels")
	}
	bits := int(d.BitDepth)
	if bits < 8 || bits > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}

	// 8-bit wav is unsigned; wider depths are signed.
	full := float64(int64(1) << (bits - 1))
	offset := 0.0
	if bits == 8 {
		offset = full
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / full
		}
		out[i] = float32(sum / float64(channels))
	}

	return &models.RawSignal{Samples: out, SampleRate: int(d.SampleRate)}, nil
}
