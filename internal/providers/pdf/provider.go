package pdf

import (
	"context"
	"io"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

type Provider interface {
	GenerateMonthlyMenu(ctx context.Context, data MonthlyMenuData) (io.Reader, error)
}

// MonthlyMenuData is a printable month of published menus for one city.
type MonthlyMenuData struct {
	City        string
	Year        int
	Month       time.Month
	Days        []MenuDay
	GeneratedAt time.Time
}

type MenuDay struct {
	Date      time.Time
	Breakfast *Meal
	Dinner    *Meal
}

type Meal struct {
	Dishes   []string
	Calories int
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateMonthlyMenu(context.Context, MonthlyMenuData) (io.Reader, error) {
	return nil, nil
}
