package observability

import (
	"testing"

	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/stretchr/testify/assert"
)

func clearObservabilityEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEPLOYMENT_ENV", "SERVICE_VERSION", "LOG_LEVEL", "LOG_FORMAT",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_PROTOCOL",
		"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_SAMPLING_RATIO", "OTEL_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	clearObservabilityEnv(t)

	cfg := LoadConfig(config.Config{Environment: "development", OTLPEndpoint: "localhost:4317"})
	assert.Equal(t, "dormmenu", cfg.ServiceName)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, float64(1), cfg.OtelSamplingRatio)
	assert.False(t, cfg.OtelEnabled, "no collector configured")
	assert.True(t, cfg.Debug())
}

func TestLoadConfig_ProductionDefaults(t *testing.T) {
	clearObservabilityEnv(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "7")

	cfg := LoadConfig(config.Config{AppName: "dormmenu-admin", Environment: "production"})
	assert.Equal(t, "dormmenu-admin", cfg.ServiceName)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio, "out of range ratios fall back")
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "otel-collector:4317", cfg.OtelExporterEndpoint)
	assert.False(t, cfg.Debug())
}
