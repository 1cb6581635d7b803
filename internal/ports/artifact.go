package ports

import (
	"context"

	"github.com/awais2281/rizqa-ai/internal/models"
)

// ArtifactResolver maps a logical artifact name to a validated local file.
type ArtifactResolver interface {
	Resolve(ctx context.Context, logicalName string, candidates []string, sourceURL string) (string, error)
	Refetch(ctx context.Context, logicalName, sourceURL string) (string, error)
	Manifest(logicalName string) (*models.ArtifactManifest, bool)
}
