package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("city", "Almaty"),
		attribute.String("user_id", "u-1"),
		attribute.String("dish_name", "Borscht"),
		attribute.String("vote_type", "like"),
	)

	keys := make([]attribute.Key, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, attr.Key)
	}
	assert.ElementsMatch(t, []attribute.Key{"city", "vote_type"}, keys)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordVote(context.Background(), "like", "like")
		m.RecordMenuEvent(context.Background(), "published", 2)
		m.RecordIngest(context.Background(), "Almaty", "created", 1)
		m.RecordRateLimitDenied(context.Background(), "vote", "rate_limited")
	})
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoop()
	assert.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordVote(context.Background(), "dislike", "none")
	})
}
