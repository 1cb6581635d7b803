package infra

import (
	"fmt"
	"math"
	"os"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteCanonicalWAV stores sig as 16-bit mono PCM at path.
func WriteCanonicalWAV(path string, sig *models.CanonicalSignal) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sig.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		Data:           make([]int, len(sig.Samples)),
		SourceBitDepth: 16,
	}
	for i, v := range sig.Samples {
		buf.Data[i] = int(math.Round(float64(clamp(v)) * math.MaxInt16))
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
