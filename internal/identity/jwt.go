package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens whose subject is the user id.
type JWTVerifier struct {
	secret []byte
	issuer string
	clock  clock.Clock
}

func NewJWTVerifier(cfg config.Config, clk clock.Clock) (*JWTVerifier, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.AuthJWTIssuer),
		clock:  clk,
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := strings.TrimSpace(c.Subject)
	if userID == "" {
		return Identity{}, ErrInvalidToken
	}
	role := Role(strings.ToLower(strings.TrimSpace(c.Role)))
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return Identity{}, ErrInvalidRole
	}
	return Identity{UserID: userID, Role: role}, nil
}

// Issue signs a token for id valid for ttl. Used by operators and tests.
func (v *JWTVerifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", ErrInvalidToken
	}
	if !id.Role.Valid() {
		return "", ErrInvalidRole
	}
	now := v.clock.Now()
	c := claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
