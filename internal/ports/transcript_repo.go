package ports

import (
	"context"

	"github.com/awais2281/rizqa-ai/internal/models"
)

type TranscriptRepository interface {
	Save(ctx context.Context, t *models.Transcription) error
	Get(ctx context.Context, id string) (*models.Transcription, error)
	ListRecent(ctx context.Context, limit int) ([]models.Transcription, error)
}
