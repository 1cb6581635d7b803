package stations

import (
	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/domain/dsp"
	"github.com/awais2281/rizqa-ai/internal/models"
)

type S2Normalize struct {
	log *logger.ZapLogger
}

func NewS2Normalize(log *logger.ZapLogger) *S2Normalize {
	return &S2Normalize{log: log}
}

func (s *S2Normalize) Run(raw *models.RawSignal) *models.CanonicalSignal {
	sig := dsp.Normalize(raw.Samples, raw.SampleRate)

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S2][OK]",
		Fields: map[string]any{
			"in_rate":     raw.SampleRate,
			"in_samples":  len(raw.Samples),
			"out_samples": len(sig.Samples),
			"out_ms":      sig.DurationMS(),
		},
	})
	return sig
}
