package stations

import (
	"context"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

const maxTextPreview = 120

type S3Recognize struct {
	log *logger.ZapLogger
}

func NewS3Recognize(log *logger.ZapLogger) *S3Recognize {
	return &S3Recognize{log: log}
}

// Run invokes the leased model once. Empty text is a valid result.
func (s *S3Recognize) Run(ctx context.Context, lease ports.ModelLease, sig *models.CanonicalSignal, language string) (string, error) {
	start := time.Now()

	text, err := lease.Model().Transcribe(ctx, sig, language)
	if err != nil {
		return "", &StepError{Step: "S3", Err: err}
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[S3][OK]",
		Fields: map[string]any{
			"model":    lease.ModelID(),
			"language": language,
			"text":     trim(text, maxTextPreview),
			"dur":      time.Since(start).String(),
		},
	})
	return text, nil
}
