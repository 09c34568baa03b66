package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	dishrepository "github.com/smallbiznis/dormmenu/internal/dish/repository"
	dishservice "github.com/smallbiznis/dormmenu/internal/dish/service"
	"github.com/smallbiznis/dormmenu/internal/ingest/domain"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	menurepository "github.com/smallbiznis/dormmenu/internal/menu/repository"
	menuservice "github.com/smallbiznis/dormmenu/internal/menu/service"
	"github.com/smallbiznis/dormmenu/internal/providers/pdf"
	"github.com/smallbiznis/dormmenu/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocker struct {
	mu      sync.Mutex
	held    map[string]bool
	fail    error
	release int
}

func (l *fakeLocker) key(city string, year, month int) string {
	return fmt.Sprintf("%s:%d:%d", city, year, month)
}

func (l *fakeLocker) TryLockMonth(_ context.Context, city string, year, month int) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return "", false, l.fail
	}
	k := l.key(city, year, month)
	if l.held[k] {
		return "", false, nil
	}
	l.held[k] = true
	return "token", true, nil
}

func (l *fakeLocker) ReleaseMonth(_ context.Context, city string, year, month int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, l.key(city, year, month))
	l.release++
	return nil
}

type fixture struct {
	svc    domain.Service
	menus  menudomain.Service
	dishes dishdomain.Service
	locker *fakeLocker
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := testutil.OpenDB(t, &menudomain.Menu{}, &dishdomain.Dish{})
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2025, 2, 25, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	dishes := dishservice.New(dishservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  dishrepository.Provide(),
		Clock: clk,
	})
	menus := menuservice.New(menuservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   menurepository.Provide(),
		Dishes: dishes,
		Policy: config.StaticMenuPolicy(config.DefaultMenuPolicy()),
		PDF:    &pdf.NoOpProvider{},
	})
	locker := &fakeLocker{held: map[string]bool{}}
	svc := New(Params{
		Log:    log,
		Clock:  clk,
		Dishes: dishes,
		Menus:  menus,
		Locker: locker,
	})
	return fixture{svc: svc, menus: menus, dishes: dishes, locker: locker}
}

func meal(calories int, dishes ...string) *domain.Meal {
	return &domain.Meal{Dishes: dishes, Calories: calories}
}

func TestReconcile_TeaBreadSoupScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch := domain.Batch{
		City:  "X",
		Year:  2025,
		Month: 3,
		Days: []domain.Day{{
			Day:       1,
			Breakfast: meal(300, "Tea", "Bread"),
			Dinner:    meal(200, "Soup"),
		}},
		AuthorID: "admin-1",
	}

	first, err := f.svc.Reconcile(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, &domain.Report{
		Created:  2,
		Skipped:  0,
		Errors:   []string{},
		NewFoods: []string{"Tea", "Bread", "Soup"},
	}, first)

	second, err := f.svc.Reconcile(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, &domain.Report{
		Created:  0,
		Skipped:  2,
		Errors:   []string{},
		NewFoods: []string{},
	}, second)

	menus, err := f.menus.List(ctx, menudomain.ListRequest{City: "X"})
	require.NoError(t, err)
	require.Len(t, menus, 2)
	for _, m := range menus {
		assert.Equal(t, menudomain.StatusDraft, m.Status)
		assert.Equal(t, "admin-1", m.AuthorID)
	}
}

func TestReconcile_PartialFailureIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch := domain.Batch{City: "Tashkent", Year: 2025, Month: 3}
	for day := 1; day <= 10; day++ {
		entry := domain.Day{Day: day, Breakfast: meal(400, "Kasha")}
		if day == 5 {
			entry.Breakfast = meal(400)
		}
		batch.Days = append(batch.Days, entry)
	}

	report, err := f.svc.Reconcile(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 9, report.Created)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "2025-03-05 breakfast")
	assert.Contains(t, report.Errors[0], menudomain.ErrInvalidDishes.Error())
}

func TestReconcile_OversizedDishFailsOnlyItsMeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := strings.Repeat("x", dishdomain.MaxNameLength+1)

	report, err := f.svc.Reconcile(ctx, domain.Batch{
		City:  "Tashkent",
		Year:  2025,
		Month: 3,
		Days: []domain.Day{
			{Day: 1, Breakfast: meal(300, "Tea", long), Dinner: meal(500, "Plov")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"Tea", "Plov"}, report.NewFoods)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "2025-03-01 breakfast")
	assert.Contains(t, report.Errors[0], menudomain.ErrInvalidDishes.Error())

	_, err = f.svc.Reconcile(ctx, domain.Batch{City: long, Year: 2025, Month: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidCity)
}

func TestReconcile_InvalidCalendarDay(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Reconcile(context.Background(), domain.Batch{
		City:  "Tashkent",
		Year:  2025,
		Month: 2,
		Days: []domain.Day{
			{Day: 28, Dinner: meal(500, "Plov")},
			{Day: 30, Dinner: meal(500, "Plov")},
			{Day: 31},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"day 30: invalid date"}, report.Errors)
}

func TestReconcile_NewFoodsComputedBeforeEnsure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.dishes.EnsureExists(ctx, "Tea"))

	report, err := f.svc.Reconcile(ctx, domain.Batch{
		City:  "Tashkent",
		Year:  2025,
		Month: 3,
		Days: []domain.Day{
			{Day: 1, Breakfast: meal(100, " Tea ", "Bread"), Dinner: meal(100, "Bread", "Soup")},
			{Day: 2, Breakfast: meal(100, "Soup", "Tea")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bread", "Soup"}, report.NewFoods)
	assert.Equal(t, 3, report.Created)

	missing, err := f.dishes.MissingNames(ctx, []string{"Tea", "Bread", "Soup"})
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestReconcile_BatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reconcile(ctx, domain.Batch{City: " ", Year: 2025, Month: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidCity)
	_, err = f.svc.Reconcile(ctx, domain.Batch{City: "X", Year: 2025, Month: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
	_, err = f.svc.Reconcile(ctx, domain.Batch{City: "X", Year: 2025, Month: 13})
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
	_, err = f.svc.Reconcile(ctx, domain.Batch{City: "X", Year: 1999, Month: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidYear)
	_, err = f.svc.Reconcile(ctx, domain.Batch{City: "X", Year: 2101, Month: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidYear)

	assert.Empty(t, f.locker.held, "validation runs before locking")
}

func TestReconcile_RejectsConcurrentRunForSameMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.locker.held[f.locker.key("Tashkent", 2025, 3)] = true

	_, err := f.svc.Reconcile(ctx, domain.Batch{City: "Tashkent", Year: 2025, Month: 3})
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)

	report, err := f.svc.Reconcile(ctx, domain.Batch{
		City:  "Tashkent",
		Year:  2025,
		Month: 4,
		Days:  []domain.Day{{Day: 1, Dinner: meal(10, "Tea")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, f.locker.release)
	assert.False(t, f.locker.held[f.locker.key("Tashkent", 2025, 4)], "lock released after run")
}

func TestReconcile_LockerFailureFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.locker.fail = fmt.Errorf("redis down")

	report, err := f.svc.Reconcile(context.Background(), domain.Batch{
		City:  "Tashkent",
		Year:  2025,
		Month: 3,
		Days:  []domain.Day{{Day: 2, Breakfast: meal(10, "Tea")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
}
