package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/dormmenu/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the tracer provider.
type Config struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// NewProvider configures the OTLP exporter and registers the global tracer provider.
// When tracing is disabled the provider records nothing but still propagates context.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(&correlationSpanProcessor{}),
	}

	if cfg.Enabled {
		exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
		)
	} else {
		opts = append(opts, sdktrace.WithSampler(sdktrace.NeverSample()))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down tracer provider")
				}
				return tp.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("tracing initialized",
			zap.Bool("enabled", cfg.Enabled),
			zap.String("endpoint", cfg.ExporterEndpoint),
		)
	}
	return tp, nil
}

func newExporter(protocol, endpoint string) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

type correlationSpanProcessor struct{}

func (p *correlationSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		s.SetAttributes(attribute.String("correlation_id", cid))
	}
}

func (p *correlationSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (p *correlationSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *correlationSpanProcessor) ForceFlush(context.Context) error { return nil }
