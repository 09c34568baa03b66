package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StoreReasonDeadlineExceeded     = "deadline_exceeded"
	StoreReasonDBLockTimeout        = "db_lock_timeout"
	StoreReasonDeadlock             = "deadlock"
	StoreReasonSerializationFailure = "serialization_failure"
	StoreReasonUniqueViolation      = "unique_violation"
	StoreReasonUnknown              = "unknown"
)

const (
	LockResourceDishRow  = "dish_row"
	LockResourceMenuRow  = "menu_row"
	LockResourceMonthRun = "ingest_month"
)

const (
	IngestResultCreated = "created"
	IngestResultSkipped = "skipped"
	IngestResultFailed  = "failed"
)

// StoreMetrics captures contention and transition signals from the relational store.
type StoreMetrics struct {
	voteTransitions *prometheus.CounterVec
	menuTransitions *prometheus.CounterVec
	ingestMenus     *prometheus.CounterVec
	ingestDuration  prometheus.Observer
	storeErrors     *prometheus.CounterVec
	dbLockWait      *prometheus.HistogramVec

	lockWaitObserver map[string]prometheus.Observer
}

var (
	storeMetricsOnce sync.Once
	storeMetrics     *StoreMetrics
)

// Store returns the singleton store metrics registry.
func Store() *StoreMetrics {
	return StoreWithConfig(Config{})
}

// StoreWithConfig returns the singleton store metrics registry using config labels.
func StoreWithConfig(cfg Config) *StoreMetrics {
	storeMetricsOnce.Do(func() {
		storeMetrics = newStoreMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return storeMetrics
}

func newStoreMetrics(registerer prometheus.Registerer, cfg Config) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "dormmenu"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	voteTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dormmenu_vote_transitions_total",
		Help:        "Vote ledger transitions by previous and resulting vote.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	menuTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dormmenu_menu_transitions_total",
		Help:        "Menu lifecycle transitions.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	ingestMenus := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dormmenu_ingest_menus_total",
		Help:        "Menus handled by bulk reconcile, by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	ingestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "dormmenu_ingest_duration_seconds",
		Help:        "Bulk reconcile latency per batch.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dormmenu_store_errors_total",
		Help:        "Store failures by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	dbLockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "dormmenu_db_lock_wait_seconds",
		Help:        "Time spent acquiring row locks with SELECT FOR UPDATE.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(
		voteTransitions,
		menuTransitions,
		ingestMenus,
		ingestDuration,
		storeErrors,
		dbLockWait,
	)

	lockWaitObserver := map[string]prometheus.Observer{
		LockResourceDishRow:  dbLockWait.WithLabelValues(LockResourceDishRow),
		LockResourceMenuRow:  dbLockWait.WithLabelValues(LockResourceMenuRow),
		LockResourceMonthRun: dbLockWait.WithLabelValues(LockResourceMonthRun),
	}

	return &StoreMetrics{
		voteTransitions:  voteTransitions,
		menuTransitions:  menuTransitions,
		ingestMenus:      ingestMenus,
		ingestDuration:   ingestDuration,
		storeErrors:      storeErrors,
		dbLockWait:       dbLockWait,
		lockWaitObserver: lockWaitObserver,
	}
}

// IncVoteTransition records one vote ledger transition. Empty states are reported as "none".
func (m *StoreMetrics) IncVoteTransition(from, to string) {
	if m == nil {
		return
	}
	m.voteTransitions.WithLabelValues(noneIfEmpty(from), noneIfEmpty(to)).Inc()
}

// AddMenuTransition records count menus moving between lifecycle states.
func (m *StoreMetrics) AddMenuTransition(from, to string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.menuTransitions.WithLabelValues(noneIfEmpty(from), noneIfEmpty(to)).Add(float64(count))
}

// AddIngestMenus records reconcile results.
func (m *StoreMetrics) AddIngestMenus(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ingestMenus.WithLabelValues(result).Add(float64(count))
}

// ObserveIngestDuration records how long one batch took.
func (m *StoreMetrics) ObserveIngestDuration(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.ingestDuration.Observe(duration.Seconds())
}

// IncStoreError classifies and counts a failed store operation.
func (m *StoreMetrics) IncStoreError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation, ClassifyStoreReason(err)).Inc()
}

// ObserveDBLockWait records lock wait time for SELECT FOR UPDATE work.
func (m *StoreMetrics) ObserveDBLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObserver[resource]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.dbLockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifyStoreReason maps store errors to low-cardinality reasons.
func ClassifyStoreReason(err error) string {
	if err == nil {
		return StoreReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StoreReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return StoreReasonDBLockTimeout
	}
	if hasPGCode(err, "40P01") {
		return StoreReasonDeadlock
	}
	if hasPGCode(err, "40001") {
		return StoreReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return StoreReasonUniqueViolation
	}
	return StoreReasonUnknown
}

// IsRetryableStoreError reports whether retrying the whole transaction may succeed.
func IsRetryableStoreError(err error) bool {
	switch ClassifyStoreReason(err) {
	case StoreReasonDeadlock, StoreReasonSerializationFailure, StoreReasonDBLockTimeout:
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func noneIfEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "none"
	}
	return v
}
