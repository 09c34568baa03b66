package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyStoreReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: StoreReasonDeadlineExceeded},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: StoreReasonDBLockTimeout},
		{name: "deadlock", err: fmt.Errorf("apply vote: %w", &pgconn.PgError{Code: "40P01"}), want: StoreReasonDeadlock},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: StoreReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: StoreReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: StoreReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStoreReason(tc.err))
		})
	}
}

func TestIsRetryableStoreError(t *testing.T) {
	assert.True(t, IsRetryableStoreError(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryableStoreError(gorm.ErrDuplicatedKey))
	assert.False(t, IsRetryableStoreError(nil))
}

func TestStoreMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newStoreMetrics(registry, Config{ServiceName: "dormmenu", Environment: "test"})

	m.IncVoteTransition("", "like")
	m.IncVoteTransition("like", "")
	m.AddMenuTransition("draft", "published", 3)
	m.AddIngestMenus(IngestResultSkipped, 2)
	m.ObserveDBLockWait(LockResourceDishRow, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.voteTransitions.WithLabelValues("none", "like")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.voteTransitions.WithLabelValues("like", "none")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.menuTransitions.WithLabelValues("draft", "published")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ingestMenus.WithLabelValues(IngestResultSkipped)))
	// All lock resources are pre-created so dashboards see zero series.
	assert.Equal(t, 3, testutil.CollectAndCount(m.dbLockWait))

	families, err := registry.Gather()
	require.NoError(t, err)
	lockWait := findFamily(families, "dormmenu_db_lock_wait_seconds")
	require.NotNil(t, lockWait)
	counts := map[string]uint64{}
	for _, metric := range lockWait.GetMetric() {
		counts[labelValue(metric, "resource")] = metric.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, map[string]uint64{
		LockResourceDishRow:  1,
		LockResourceMenuRow:  0,
		LockResourceMonthRun: 0,
	}, counts)
}

func TestNilStoreMetricsAreSafe(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.IncVoteTransition("like", "dislike")
		m.IncStoreError("vote.apply", errors.New("boom"))
		m.ObserveIngestDuration(time.Second)
	})
}
