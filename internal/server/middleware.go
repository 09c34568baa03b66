package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dormmenu/internal/identity"
	obscontext "github.com/smallbiznis/dormmenu/internal/observability/context"
	"github.com/smallbiznis/dormmenu/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dormmenu/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonUserVote = "user-vote"

// AuthRequired resolves the bearer token and binds the caller to the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := identity.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, identity.ErrMissingToken)
			return
		}
		if s.verifier == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := identity.WithIdentity(c.Request.Context(), id)
		ctx = obscontext.WithActor(ctx, string(id.Role), id.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), id.UserID, string(id.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// VoteRateLimit applies the per-user token bucket. Limiter outages fail open.
func (s *Server) VoteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.limiter.AllowVote(ctx, id.UserID)
		if err != nil {
			logger.FromContext(ctx).Warn("vote rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.FromContext(ctx).Warn("vote rate limit exceeded",
				zap.String("reason", rateLimitReasonUserVote),
				zap.String("endpoint", endpoint),
			)
			recordRateLimitDenied(ctx, endpoint, rateLimitReasonUserVote, s.obsMetrics)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonUserVote)
			AbortWithError(c, ErrRateLimited)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

func identityFrom(c *gin.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request.Context())
}
