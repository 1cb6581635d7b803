package stations

import (
	"context"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

type S1DecodeAudio struct {
	loader ports.SignalLoader
	log    *logger.ZapLogger
}

func NewS1DecodeAudio(loader ports.SignalLoader, log *logger.ZapLogger) *S1DecodeAudio {
	return &S1DecodeAudio{loader: loader, log: log}
}

func (s *S1DecodeAudio) Run(ctx context.Context, up *models.Upload) (*models.RawSignal, error) {
	start := time.Now()

	raw, err := s.loader.Load(ctx, up.Filename, up.Data)
	if err != nil {
		return nil, &StepError{Step: "S1", Err: err}
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S1][OK]",
		Fields: map[string]any{
			"file":    up.Filename,
			"bytes":   len(up.Data),
			"rate":    raw.SampleRate,
			"samples": len(raw.Samples),
			"dur":     time.Since(start).String(),
		},
	})
	return raw, nil
}
