package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(WithRequestID(context.Background(), " ")))
}

func TestActor(t *testing.T) {
	role, id := ActorFromContext(context.Background())
	assert.Empty(t, role)
	assert.Empty(t, id)

	ctx := WithActor(context.Background(), "editor", "u-7")
	role, id = ActorFromContext(ctx)
	assert.Equal(t, "editor", role)
	assert.Equal(t, "u-7", id)
}
