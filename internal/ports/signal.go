package ports

import (
	"context"

	"github.com/awais2281/rizqa-ai/internal/models"
)

type SignalLoader interface {
	Load(ctx context.Context, filename string, data []byte) (*models.RawSignal, error)
}
