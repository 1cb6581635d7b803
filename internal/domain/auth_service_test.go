package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminAuth(t *testing.T) {
	ctx := context.Background()

	open := NewAdminAuth("")
	assert.False(t, open.Enabled())
	ok, _ := open.ValidateToken(ctx, "anything")
	assert.True(t, ok)

	guarded := NewAdminAuth("s3cret")
	assert.True(t, guarded.Enabled())
	ok, _ = guarded.ValidateToken(ctx, "s3cret")
	assert.True(t, ok)
	ok, _ = guarded.ValidateToken(ctx, "s3cre")
	assert.False(t, ok)
	ok, _ = guarded.ValidateToken(ctx, "")
	assert.False(t, ok)
}
