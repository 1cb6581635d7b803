package domain

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"

	"github.com/awais2281/rizqa-ai/internal/ports"
)

// adminAuth guards operator endpoints with a shared token.
type adminAuth struct {
	secret string
}

func NewAdminAuth(secret string) ports.AdminAuth {
	return &adminAuth{secret: secret}
}

func (s *adminAuth) Enabled() bool { return s.secret != "" }

// ValidateToken compares MACs of the token and the secret in constant time.
func (s *adminAuth) ValidateToken(_ context.Context, token string) (bool, error) {
	if !s.Enabled() {
		return true, nil
	}
	return hmac.Equal(s.sign(token), s.sign(s.secret)), nil
}

func (s *adminAuth) sign(msg string) []byte {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write([]byte(msg))
	return h.Sum(nil)
}
