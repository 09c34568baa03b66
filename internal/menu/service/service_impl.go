package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	"github.com/smallbiznis/dormmenu/internal/menu/domain"
	"github.com/smallbiznis/dormmenu/internal/observability/metrics"
	"github.com/smallbiznis/dormmenu/internal/providers/pdf"
	pkgdb "github.com/smallbiznis/dormmenu/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minYear = 2000
	maxYear = 2100

	maxCreateAttempts = 3
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Dishes dishdomain.Service
	Policy config.MenuPolicyProvider
	PDF    pdf.Provider

	AuditSvc     auditdomain.Service   `optional:"true"`
	Metrics      *metrics.Metrics      `optional:"true"`
	StoreMetrics *metrics.StoreMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	dishes       dishdomain.Service
	policy       config.MenuPolicyProvider
	pdf          pdf.Provider
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
	storeMetrics *metrics.StoreMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("menu.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		dishes:       p.Dishes,
		policy:       p.Policy,
		pdf:          p.PDF,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
		storeMetrics: p.StoreMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	policy := s.policy.Get()

	city, err := validateCity(policy, req.City)
	if err != nil {
		return nil, err
	}
	date, ok := domain.ParseDate(strings.TrimSpace(req.Date))
	if !ok {
		return nil, domain.ErrInvalidDate
	}
	slot := normalizeSlot(req.MealSlot)
	if !slot.Valid() {
		return nil, domain.ErrInvalidMealSlot
	}
	dishes, err := validateDishes(policy, req.Dishes)
	if err != nil {
		return nil, err
	}
	if err := validateCalories(policy, req.Calories); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	menu := &domain.Menu{
		ID:        s.genID.Generate().Int64(),
		City:      city,
		MenuDate:  date,
		MealSlot:  slot,
		Dishes:    dishes,
		Calories:  req.Calories,
		Status:    domain.StatusDraft,
		AuthorID:  strings.TrimSpace(req.AuthorID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.dishes.WithTx(tx).EnsureMany(ctx, dishes); err != nil {
				return err
			}
			return s.repo.Insert(ctx, tx, menu)
		})
		// The natural key is handled by the insert itself, so a remaining unique
		// violation is an id issued twice by generators sharing a node.
		if err == nil || errors.Is(err, domain.ErrDuplicateMenu) || !pkgdb.IsDuplicateKeyErr(err) || attempt >= maxCreateAttempts {
			break
		}
		s.log.Warn("menu id collision, regenerating",
			zap.Int64("menu_id", menu.ID),
			zap.String("constraint", pkgdb.DuplicateKeyConstraint(err)),
			zap.Int("attempt", attempt),
		)
		menu.ID = s.genID.Generate().Int64()
	}
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateMenu) {
			return nil, domain.ErrDuplicateMenu
		}
		s.fail(ctx, "menu.create", err)
		return nil, err
	}

	s.storeMetrics.AddMenuTransition("none", string(domain.StatusDraft), 1)
	s.metrics.RecordMenuEvent(ctx, "created", 1)
	s.audit(ctx, auditdomain.ActionMenuCreated, auditdomain.TargetTypeMenu, formatID(menu.ID), map[string]any{
		"city":      menu.City,
		"date":      menu.MenuDate.Format(domain.DateLayout),
		"meal_slot": string(menu.MealSlot),
		"dishes":    len(dishes),
	})

	resp := toResponse(menu)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Get()
	var patch domain.Patch
	if req.Dishes != nil {
		dishes, err := validateDishes(policy, req.Dishes)
		if err != nil {
			return nil, err
		}
		patch.Dishes = dishes
	}
	if req.Calories != nil {
		if err := validateCalories(policy, *req.Calories); err != nil {
			return nil, err
		}
		calories := *req.Calories
		patch.Calories = &calories
	}

	var updated *domain.Menu
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		menu, err := s.lockMenu(ctx, tx, id)
		if err != nil {
			return err
		}
		draft, ok := menu.State().(domain.Draft)
		if !ok {
			return domain.ErrMenuPublished
		}

		next := draft.Apply(patch)
		if patch.Dishes != nil {
			if err := s.dishes.WithTx(tx).EnsureMany(ctx, next.Dishes); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		affected, err := s.repo.UpdateDraft(ctx, tx, id, next.Dishes, next.Calories, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrMenuPublished
		}

		menu.Dishes = next.Dishes
		menu.Calories = next.Calories
		menu.UpdatedAt = now
		updated = menu
		return nil
	})
	if err != nil {
		s.fail(ctx, "menu.update", err)
		return nil, err
	}

	s.metrics.RecordMenuEvent(ctx, "updated", 1)
	s.audit(ctx, auditdomain.ActionMenuUpdated, auditdomain.TargetTypeMenu, formatID(id), map[string]any{
		"dishes_changed":   patch.Dishes != nil,
		"calories_changed": patch.Calories != nil,
	})

	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Publish(ctx context.Context, rawID string) (*domain.Response, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var published *domain.Menu
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		menu, err := s.lockMenu(ctx, tx, id)
		if err != nil {
			return err
		}
		draft, ok := menu.State().(domain.Draft)
		if !ok {
			return domain.ErrAlreadyPublished
		}

		next := draft.Publish(s.clock.Now())
		affected, err := s.repo.PublishDrafts(ctx, tx, []int64{id}, next.PublishedAt)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrAlreadyPublished
		}

		menu.Status = next.Status()
		menu.PublishedAt = &next.PublishedAt
		menu.UpdatedAt = next.PublishedAt
		published = menu
		return nil
	})
	if err != nil {
		s.fail(ctx, "menu.publish", err)
		return nil, err
	}

	s.storeMetrics.AddMenuTransition(string(domain.StatusDraft), string(domain.StatusPublished), 1)
	s.metrics.RecordMenuEvent(ctx, "published", 1)
	s.audit(ctx, auditdomain.ActionMenuPublished, auditdomain.TargetTypeMenu, formatID(id), nil)

	resp := toResponse(published)
	return &resp, nil
}

// PublishBulk publishes the drafts among ids. Unknown, malformed and published ids are skipped.
func (s *Service) PublishBulk(ctx context.Context, rawIDs []string) ([]string, error) {
	ids := make([]int64, 0, len(rawIDs))
	seen := make(map[int64]struct{}, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	var transitioned []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		drafts, err := s.repo.LockDraftIDs(ctx, tx, ids)
		s.storeMetrics.ObserveDBLockWait(metrics.LockResourceMenuRow, time.Since(lockStart))
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return nil
		}
		if _, err := s.repo.PublishDrafts(ctx, tx, drafts, s.clock.Now()); err != nil {
			return err
		}
		transitioned = drafts
		return nil
	})
	if err != nil {
		s.fail(ctx, "menu.publish_bulk", err)
		return nil, err
	}

	out := formatIDs(transitioned)
	if len(out) > 0 {
		s.storeMetrics.AddMenuTransition(string(domain.StatusDraft), string(domain.StatusPublished), len(out))
		s.metrics.RecordMenuEvent(ctx, "published", len(out))
		s.audit(ctx, auditdomain.ActionMenuBulkPublished, auditdomain.TargetTypeMenu, "", map[string]any{
			"requested": len(rawIDs),
			"published": out,
		})
	}
	return out, nil
}

func (s *Service) PublishMonth(ctx context.Context, req domain.MonthRequest) (*domain.PublishMonthResult, error) {
	city, err := validateCity(s.policy.Get(), req.City)
	if err != nil {
		return nil, err
	}
	month, err := validateMonth(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	from, to := domain.MonthRange(req.Year, month)

	var transitioned []int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		drafts, err := s.repo.LockMonthDraftIDs(ctx, tx, city, from, to)
		s.storeMetrics.ObserveDBLockWait(metrics.LockResourceMonthRun, time.Since(lockStart))
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return domain.ErrNothingToPublish
		}
		if _, err := s.repo.PublishDrafts(ctx, tx, drafts, s.clock.Now()); err != nil {
			return err
		}
		transitioned = drafts
		return nil
	})
	if err != nil {
		s.fail(ctx, "menu.publish_month", err)
		return nil, err
	}

	out := formatIDs(transitioned)
	s.storeMetrics.AddMenuTransition(string(domain.StatusDraft), string(domain.StatusPublished), len(out))
	s.metrics.RecordMenuEvent(ctx, "published", len(out))
	s.audit(ctx, auditdomain.ActionMenuMonthPublished, auditdomain.TargetTypeMonth, monthKey(city, req.Year, month), map[string]any{
		"count": len(out),
	})

	return &domain.PublishMonthResult{Count: len(out), IDs: out}, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.DeleteDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}
		menu, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if menu == nil {
			return domain.ErrNotFound
		}
		return domain.ErrMenuPublished
	})
	if err != nil {
		s.fail(ctx, "menu.delete", err)
		return err
	}

	s.storeMetrics.AddMenuTransition(string(domain.StatusDraft), "deleted", 1)
	s.metrics.RecordMenuEvent(ctx, "deleted", 1)
	s.audit(ctx, auditdomain.ActionMenuDeleted, auditdomain.TargetTypeMenu, formatID(id), nil)
	return nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*domain.Response, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	menu, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(menu)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{City: strings.TrimSpace(req.City)}

	if req.Status != "" {
		status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if req.MealSlot != "" {
		slot := normalizeSlot(req.MealSlot)
		if !slot.Valid() {
			return nil, domain.ErrInvalidMealSlot
		}
		filter.MealSlot = slot
	}

	switch {
	case req.Month != 0:
		month, err := validateMonth(req.Year, req.Month)
		if err != nil {
			return nil, err
		}
		from, to := domain.MonthRange(req.Year, month)
		filter.From, filter.To = &from, &to
	case req.Year != 0:
		if req.Year < minYear || req.Year > maxYear {
			return nil, domain.ErrInvalidMonth
		}
		from := time.Date(req.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		filter.From, filter.To = &from, &to
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// Daily returns the published breakfast and dinner of one city for one date.
func (s *Service) Daily(ctx context.Context, city, date string) (*domain.DailyResponse, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, domain.ErrInvalidCity
	}
	day, ok := domain.ParseDate(strings.TrimSpace(date))
	if !ok {
		return nil, domain.ErrInvalidDate
	}
	next := day.AddDate(0, 0, 1)

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		City:   city,
		From:   &day,
		To:     &next,
		Status: domain.StatusPublished,
	})
	if err != nil {
		return nil, err
	}

	resp := &domain.DailyResponse{City: city, Date: day.Format(domain.DateLayout)}
	for i := range items {
		item := toResponse(&items[i])
		switch items[i].MealSlot {
		case domain.MealSlotBreakfast:
			resp.Breakfast = &item
		case domain.MealSlotDinner:
			resp.Dinner = &item
		}
	}
	return resp, nil
}

// MonthlyPDF renders the published menus of one city and month as a printable sheet.
func (s *Service) MonthlyPDF(ctx context.Context, req domain.MonthRequest) (io.Reader, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return nil, domain.ErrInvalidCity
	}
	month, err := validateMonth(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	from, to := domain.MonthRange(req.Year, month)

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		City:   city,
		From:   &from,
		To:     &to,
		Status: domain.StatusPublished,
	})
	if err != nil {
		return nil, err
	}

	data := pdf.MonthlyMenuData{
		City:        city,
		Year:        req.Year,
		Month:       month,
		GeneratedAt: s.clock.Now(),
	}
	byDate := map[string]int{}
	for i := range items {
		item := items[i]
		key := item.MenuDate.UTC().Format(domain.DateLayout)
		idx, ok := byDate[key]
		if !ok {
			data.Days = append(data.Days, pdf.MenuDay{Date: item.MenuDate.UTC()})
			idx = len(data.Days) - 1
			byDate[key] = idx
		}
		meal := &pdf.Meal{Dishes: append([]string(nil), item.Dishes...), Calories: item.Calories}
		switch item.MealSlot {
		case domain.MealSlotBreakfast:
			data.Days[idx].Breakfast = meal
		case domain.MealSlotDinner:
			data.Days[idx].Dinner = meal
		}
	}

	return s.pdf.GenerateMonthlyMenu(ctx, data)
}

func (s *Service) lockMenu(ctx context.Context, tx *gorm.DB, id int64) (*domain.Menu, error) {
	lockStart := time.Now()
	menu, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	s.storeMetrics.ObserveDBLockWait(metrics.LockResourceMenuRow, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, domain.ErrNotFound
	}
	return menu, nil
}

func (s *Service) audit(ctx context.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	})
}

// fail logs and counts store failures. Domain outcomes are returned silently.
func (s *Service) fail(ctx context.Context, operation string, err error) {
	if isDomainError(err) {
		return
	}
	s.storeMetrics.IncStoreError(operation, err)
	s.log.Error("menu store operation failed", zap.String("operation", operation), zap.Error(err))
}

func isDomainError(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateMenu),
		errors.Is(err, domain.ErrMenuPublished),
		errors.Is(err, domain.ErrAlreadyPublished),
		errors.Is(err, domain.ErrNothingToPublish):
		return true
	}
	return domain.IsValidationError(err)
}

func validateCity(policy config.MenuPolicy, raw string) (string, error) {
	city := strings.TrimSpace(raw)
	if !dishdomain.ValidName(city) {
		return "", domain.ErrInvalidCity
	}
	if !policy.AllowsCity(city) {
		return "", domain.ErrCityNotAllowed
	}
	return city, nil
}

func validateDishes(policy config.MenuPolicy, raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, domain.ErrInvalidDishes
	}
	dishes := make([]string, 0, len(raw))
	for _, name := range raw {
		name = dishdomain.NormalizeName(name)
		if !dishdomain.ValidName(name) {
			return nil, domain.ErrInvalidDishes
		}
		dishes = append(dishes, name)
	}
	if policy.MaxDishesPerMenu > 0 && len(dishes) > policy.MaxDishesPerMenu {
		return nil, domain.ErrTooManyDishes
	}
	return dishes, nil
}

func validateCalories(policy config.MenuPolicy, calories int) error {
	if calories < 0 {
		return domain.ErrInvalidCalories
	}
	if policy.MaxCalories > 0 && calories > policy.MaxCalories {
		return domain.ErrInvalidCalories
	}
	return nil
}

func validateMonth(year, month int) (time.Month, error) {
	if month < 1 || month > 12 || year < minYear || year > maxYear {
		return 0, domain.ErrInvalidMonth
	}
	return time.Month(month), nil
}

func normalizeSlot(slot domain.MealSlot) domain.MealSlot {
	return domain.MealSlot(strings.ToLower(strings.TrimSpace(string(slot))))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, formatID(id))
	}
	return out
}

func monthKey(city string, year int, month time.Month) string {
	return city + "/" + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func toResponse(m *domain.Menu) domain.Response {
	dishes := make([]string, 0, len(m.Dishes))
	dishes = append(dishes, m.Dishes...)
	return domain.Response{
		ID:          formatID(m.ID),
		City:        m.City,
		Date:        m.MenuDate.UTC().Format(domain.DateLayout),
		MealSlot:    m.MealSlot,
		Dishes:      dishes,
		Calories:    m.Calories,
		Status:      m.Status,
		PublishedAt: m.PublishedAt,
		AuthorID:    m.AuthorID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
