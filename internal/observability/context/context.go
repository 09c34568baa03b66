package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type actorKey struct{}

type actor struct {
	role string
	id   string
}

// WithRequestID stores the inbound request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithActor stores the authenticated caller for log and audit enrichment.
func WithActor(ctx context.Context, role, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor{role: strings.TrimSpace(role), id: id})
}

// ActorFromContext returns the actor role and id, both empty when anonymous.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return value.role, value.id
}
