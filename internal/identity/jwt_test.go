package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T, clk clock.Clock) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "dormmenu"}, clk)
	require.NoError(t, err)
	return v
}

func TestVerify_RoundTrip(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	v := newVerifier(t, clk)

	token, err := v.Issue(Identity{UserID: "u-1", Role: RoleEditor}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Role: RoleEditor}, id)
}

func TestVerify_Rejects(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	v := newVerifier(t, clk)
	ctx := context.Background()

	_, err := v.Verify(ctx, "  ")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify(ctx, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue(Identity{UserID: "u-1", Role: RoleUser}, time.Minute)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewJWTVerifier(config.Config{AuthJWTSecret: "other", AuthJWTIssuer: "dormmenu"}, clk)
	require.NoError(t, err)
	forged, err := other.Issue(Identity{UserID: "u-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTVerifier(config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "elsewhere"}, clk)
	require.NoError(t, err)
	token, err := wrongIssuer.Issue(Identity{UserID: "u-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RoleHandling(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	v := newVerifier(t, clk)
	ctx := context.Background()

	sign := func(role string) string {
		c := claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u-9",
				Issuer:    "dormmenu",
				ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
			},
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return s
	}

	id, err := v.Verify(ctx, sign(""))
	require.NoError(t, err)
	assert.Equal(t, RoleUser, id.Role)

	id, err = v.Verify(ctx, sign("ADMIN"))
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, id.Role)

	_, err = v.Verify(ctx, sign("root"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(config.Config{}, nil)
	assert.Error(t, err)
}

func TestBearerTokenAndContext(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u-1", Role: RoleAdmin})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, id.Role)
}
