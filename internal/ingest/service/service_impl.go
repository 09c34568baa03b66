package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/clock"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	"github.com/smallbiznis/dormmenu/internal/ingest/domain"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	"github.com/smallbiznis/dormmenu/internal/observability/metrics"
	"github.com/smallbiznis/dormmenu/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	minYear = 2000
	maxYear = 2100
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Dishes dishdomain.Service
	Menus  menudomain.Service

	Locker       domain.MonthLocker    `optional:"true"`
	AuditSvc     auditdomain.Service   `optional:"true"`
	Metrics      *metrics.Metrics      `optional:"true"`
	StoreMetrics *metrics.StoreMetrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	dishes       dishdomain.Service
	menus        menudomain.Service
	locker       domain.MonthLocker
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
	storeMetrics *metrics.StoreMetrics
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("ingest.service"),
		clock:        p.Clock,
		dishes:       p.Dishes,
		menus:        p.Menus,
		locker:       p.Locker,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
		storeMetrics: p.StoreMetrics,
	}
}

func (s *Service) Reconcile(ctx context.Context, batch domain.Batch) (*domain.Report, error) {
	batch.City = strings.TrimSpace(batch.City)
	if !dishdomain.ValidName(batch.City) {
		return nil, domain.ErrInvalidCity
	}
	if batch.Month < 1 || batch.Month > 12 {
		return nil, domain.ErrInvalidMonth
	}
	if batch.Year < minYear || batch.Year > maxYear {
		return nil, domain.ErrInvalidYear
	}

	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	log := s.log.With(
		zap.String("correlation_id", correlationID),
		zap.String("city", batch.City),
		zap.Int("year", batch.Year),
		zap.Int("month", batch.Month),
	)

	release, err := s.lock(ctx, log, batch)
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.clock.Now()

	// Oversized names fail their meal in reconcileMeal instead of the whole batch.
	names := make([]string, 0)
	for _, name := range dishdomain.UniqueNames(batch.DishNames()) {
		if dishdomain.ValidName(name) {
			names = append(names, name)
		}
	}
	newFoods, err := s.dishes.MissingNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.dishes.EnsureMany(ctx, names); err != nil {
		return nil, err
	}

	report := &domain.Report{
		Errors:   []string{},
		NewFoods: append([]string{}, newFoods...),
	}

	for _, day := range batch.Days {
		if day.Breakfast == nil && day.Dinner == nil {
			continue
		}
		date, ok := menudomain.CalendarDate(batch.Year, time.Month(batch.Month), day.Day)
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("day %d: invalid date", day.Day))
			continue
		}

		s.reconcileMeal(ctx, batch, date, menudomain.MealSlotBreakfast, day.Breakfast, report)
		s.reconcileMeal(ctx, batch, date, menudomain.MealSlotDinner, day.Dinner, report)
	}

	elapsed := s.clock.Now().Sub(started)
	s.storeMetrics.AddIngestMenus(metrics.IngestResultCreated, report.Created)
	s.storeMetrics.AddIngestMenus(metrics.IngestResultSkipped, report.Skipped)
	s.storeMetrics.AddIngestMenus(metrics.IngestResultFailed, len(report.Errors))
	s.storeMetrics.ObserveIngestDuration(elapsed)
	s.metrics.RecordIngest(ctx, batch.City, metrics.IngestResultCreated, report.Created)
	s.metrics.RecordIngest(ctx, batch.City, metrics.IngestResultSkipped, report.Skipped)
	s.metrics.RecordIngest(ctx, batch.City, metrics.IngestResultFailed, len(report.Errors))

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionMenuIngested,
			TargetType: auditdomain.TargetTypeMonth,
			TargetID:   fmt.Sprintf("%s/%04d-%02d", batch.City, batch.Year, batch.Month),
			Metadata: map[string]any{
				"created":   report.Created,
				"skipped":   report.Skipped,
				"errors":    len(report.Errors),
				"new_foods": len(report.NewFoods),
			},
		})
	}

	log.Info("batch reconciled",
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
		zap.Int("new_foods", len(report.NewFoods)),
		zap.Duration("elapsed", elapsed),
	)
	return report, nil
}

func (s *Service) reconcileMeal(ctx context.Context, batch domain.Batch, date time.Time, slot menudomain.MealSlot, meal *domain.Meal, report *domain.Report) {
	if meal == nil {
		return
	}

	_, err := s.menus.Create(ctx, menudomain.CreateRequest{
		City:     batch.City,
		Date:     date.Format(menudomain.DateLayout),
		MealSlot: slot,
		Dishes:   meal.Dishes,
		Calories: meal.Calories,
		AuthorID: batch.AuthorID,
	})
	switch {
	case err == nil:
		report.Created++
	case errors.Is(err, menudomain.ErrDuplicateMenu):
		report.Skipped++
	default:
		report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %s", date.Format(menudomain.DateLayout), slot, err.Error()))
	}
}

// lock claims the month when a locker is configured. An unreachable locker is logged and ignored.
func (s *Service) lock(ctx context.Context, log *zap.Logger, batch domain.Batch) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	token, ok, err := s.locker.TryLockMonth(ctx, batch.City, batch.Year, batch.Month)
	if err != nil {
		log.Warn("ingest lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, domain.ErrIngestInProgress
	}
	return func() {
		if err := s.locker.ReleaseMonth(context.WithoutCancel(ctx), batch.City, batch.Year, batch.Month, token); err != nil {
			log.Warn("failed to release ingest lock", zap.Error(err))
		}
	}, nil
}
