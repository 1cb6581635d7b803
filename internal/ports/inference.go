package ports

import (
	"context"

	"github.com/awais2281/rizqa-ai/internal/models"
)

// InferenceBackend turns a validated artifact on disk into a servable model.
type InferenceBackend interface {
	Name() string
	Load(ctx context.Context, artifactPath string) (Model, error)
}

// Model is the opaque recognizer. language is a hint and may be ignored.
type Model interface {
	Transcribe(ctx context.Context, sig *models.CanonicalSignal, language string) (string, error)
	Close() error
}

// ModelLease pins one loaded model until Release. A reload never closes a
// model that still has open leases.
type ModelLease interface {
	Model() Model
	ModelID() string
	Release()
}

type ModelProvider interface {
	Acquire() (ModelLease, error)
}
