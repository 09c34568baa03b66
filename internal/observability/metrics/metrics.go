package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments exported over OTLP.
type Metrics struct {
	votes            metric.Int64Counter
	menuEvents       metric.Int64Counter
	ingestMenus      metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "dormmenu"
	}
	meter := provider.Meter(name)

	votes, err := meter.Int64Counter("dormmenu_votes_total")
	if err != nil {
		return nil, err
	}
	menuEvents, err := meter.Int64Counter("dormmenu_menu_events_total")
	if err != nil {
		return nil, err
	}
	ingestMenus, err := meter.Int64Counter("dormmenu_ingest_menus_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("dormmenu_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("dormmenu_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		votes:            votes,
		menuEvents:       menuEvents,
		ingestMenus:      ingestMenus,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests and tools.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordVote counts a vote request by the requested type and resulting state.
func (m *Metrics) RecordVote(ctx context.Context, requested, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("vote_type", strings.TrimSpace(requested)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.votes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMenuEvent counts menu lifecycle operations.
func (m *Metrics) RecordMenuEvent(ctx context.Context, event string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(event)))
	m.menuEvents.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordIngest counts per-menu reconcile outcomes.
func (m *Metrics) RecordIngest(ctx context.Context, city, result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("city", strings.TrimSpace(city)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.ingestMenus.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// User ids and dish names are unbounded and never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"city":        {},
	"endpoint":    {},
	"status_code": {},
	"vote_type":   {},
	"event_type":  {},
	"result":      {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
