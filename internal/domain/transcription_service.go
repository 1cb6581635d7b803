package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/domain/stations"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/google/uuid"
)

// AllowedExtensions are the upload types /transcribe accepts.
var AllowedExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".webm", ".mpeg", ".mp4"}

// largeUpload is where the service starts warning about slow requests.
const largeUpload = 1 << 20

// TranscriptionService runs decode -> normalize -> recognize for one upload.
// Requests share nothing but the leased model.
type TranscriptionService struct {
	provider ports.ModelProvider
	repo     ports.TranscriptRepository
	events   ports.EventPublisher

	s1 *stations.S1DecodeAudio
	s2 *stations.S2Normalize
	s3 *stations.S3Recognize

	defaultLanguage string
	log             *logger.ZapLogger
}

// NewTranscriptionService wires the stations. repo and events may be nil.
func NewTranscriptionService(
	provider ports.ModelProvider,
	repo ports.TranscriptRepository,
	events ports.EventPublisher,
	s1 *stations.S1DecodeAudio,
	s2 *stations.S2Normalize,
	s3 *stations.S3Recognize,
	defaultLanguage string,
	log *logger.ZapLogger,
) *TranscriptionService {
	if defaultLanguage == "" {
		defaultLanguage = "ar"
	}
	return &TranscriptionService{
		provider:        provider,
		repo:            repo,
		events:          events,
		s1:              s1,
		s2:              s2,
		s3:              s3,
		defaultLanguage: defaultLanguage,
		log:             log,
	}
}

var _ ports.Transcriber = (*TranscriptionService)(nil)

func ExtensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

func (s *TranscriptionService) Transcribe(ctx context.Context, up *models.Upload) (*models.Transcription, error) {
	if !ExtensionAllowed(up.Filename) {
		return nil, fmt.Errorf("%w: %q, allowed: %s",
			models.ErrUnsupportedExtension, filepath.Ext(up.Filename), strings.Join(AllowedExtensions, ", "))
	}
	language := up.Language
	if language == "" {
		language = s.defaultLanguage
	}
	if len(up.Data) > largeUpload {
		s.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "[transcribe] large audio, processing may be slow",
			Fields:  map[string]any{"file": up.Filename, "bytes": len(up.Data)},
		})
	}

	lease, err := s.provider.Acquire()
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	start := time.Now()
	raw, err := s.s1.Run(ctx, up)
	if err != nil {
		return nil, err
	}
	sig := s.s2.Run(raw)
	text, err := s.s3.Run(ctx, lease, sig, language)
	if err != nil {
		return nil, err
	}

	t := &models.Transcription{
		ID:         uuid.NewString(),
		Filename:   up.Filename,
		Language:   language,
		Model:      lease.ModelID(),
		Text:       text,
		Samples:    sig.DurationSamples(),
		DurationMS: sig.DurationMS(),
		CreatedAt:  time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, t); err != nil {
			s.log.Log(logger.LogEntry{
				Level:   "error",
				Message: "[DB][FAIL] transcription not stored",
				Error:   err,
				Fields:  map[string]any{"id": t.ID},
			})
		}
	}
	if s.events != nil {
		s.events.Publish(models.RoomTranscriptions, models.Event{Type: models.EventTranscribed, Payload: t})
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[DONE]",
		Fields: map[string]any{
			"id":   t.ID,
			"file": up.Filename,
			"ms":   t.DurationMS,
			"dur":  time.Since(start).String(),
		},
	})
	return t, nil
}
