package ports

import (
	"context"

	"github.com/awais2281/rizqa-ai/internal/models"
)

type Transcriber interface {
	Transcribe(ctx context.Context, up *models.Upload) (*models.Transcription, error)
}

type ModelManager interface {
	Status() models.ModelStatus
	Reload(ctx context.Context, refresh bool) (models.ModelStatus, error)
}
