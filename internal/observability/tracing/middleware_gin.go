package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/dormmenu/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dormmenu/http"

// Surfaces a request can hit. Admin spans are kept apart from public browsing and voting.
const (
	SurfacePublic = "public"
	SurfaceAdmin  = "admin"
	SurfaceOther  = "other"
)

// Probes and scrapes are not traced.
var untracedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// GinMiddleware opens a server span per request, named after the matched route
// and tagged with the surface and the acting role.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		if _, skip := untracedPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
			attribute.String("dormmenu.surface", RouteSurface(route)),
		}
		// Auth middleware binds the actor on the request context further down the chain.
		if role, _ := obscontext.ActorFromContext(c.Request.Context()); role != "" {
			attrs = append(attrs, attribute.String("dormmenu.actor_role", role))
		}
		if city := strings.TrimSpace(c.Query("city")); city != "" {
			attrs = append(attrs, attribute.String("dormmenu.city", city))
		}
		if status == http.StatusTooManyRequests {
			attrs = append(attrs, attribute.Bool("dormmenu.rate_limited", true))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

// RouteSurface classifies a gin route template.
func RouteSurface(route string) string {
	switch {
	case route == "/admin" || strings.HasPrefix(route, "/admin/"):
		return SurfaceAdmin
	case route == "/api" || strings.HasPrefix(route, "/api/"):
		return SurfacePublic
	default:
		return SurfaceOther
	}
}
