// Package identity resolves bearer tokens to the calling user and their role.
package identity

import (
	"context"
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleUser:
		return true
	}
	return false
}

type Identity struct {
	UserID string
	Role   Role
}

// Verifier checks a bearer token and returns who presented it.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrInvalidRole  = errors.New("invalid_role")
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return Identity{}, false
	}
	return id, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
