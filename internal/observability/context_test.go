package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserIDFromContext(ctx))

	ctx = WithUserID(ctx, "user-9")
	assert.Equal(t, "user-9", UserIDFromContext(ctx))
}

func TestContextKeysAreIndependent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	assert.Empty(t, UserIDFromContext(ctx))
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}
