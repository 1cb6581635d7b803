package ports

import "context"

type AdminAuth interface {
	Enabled() bool
	ValidateToken(ctx context.Context, token string) (bool, error)
}
