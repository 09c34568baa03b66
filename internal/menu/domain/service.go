package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// Service owns the draft -> published lifecycle of menus.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Publish(ctx context.Context, id string) (*Response, error)
	PublishBulk(ctx context.Context, ids []string) ([]string, error)
	PublishMonth(ctx context.Context, req MonthRequest) (*PublishMonthResult, error)
	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Daily(ctx context.Context, city, date string) (*DailyResponse, error)
	MonthlyPDF(ctx context.Context, req MonthRequest) (io.Reader, error)
}

type CreateRequest struct {
	City     string   `json:"city"`
	Date     string   `json:"date"`
	MealSlot MealSlot `json:"meal_slot"`
	Dishes   []string `json:"dishes"`
	Calories int      `json:"calories"`
	AuthorID string   `json:"-"`
}

type UpdateRequest struct {
	ID       string   `json:"-"`
	Dishes   []string `json:"dishes"`
	Calories *int     `json:"calories"`
}

type MonthRequest struct {
	City  string `json:"city" form:"city"`
	Year  int    `json:"year" form:"year"`
	Month int    `json:"month" form:"month"`
}

type ListRequest struct {
	City     string   `form:"city"`
	Year     int      `form:"year"`
	Month    int      `form:"month"`
	Status   Status   `form:"status"`
	MealSlot MealSlot `form:"meal_slot"`
}

type PublishMonthResult struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

type Response struct {
	ID          string     `json:"id"`
	City        string     `json:"city"`
	Date        string     `json:"date"`
	MealSlot    MealSlot   `json:"meal_slot"`
	Dishes      []string   `json:"dishes"`
	Calories    int        `json:"calories"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    string     `json:"author_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type DailyResponse struct {
	City      string    `json:"city"`
	Date      string    `json:"date"`
	Breakfast *Response `json:"breakfast"`
	Dinner    *Response `json:"dinner"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCity     = errors.New("invalid_city")
	ErrCityNotAllowed  = errors.New("city_not_allowed")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidMealSlot = errors.New("invalid_meal_slot")
	ErrInvalidDishes   = errors.New("invalid_dishes")
	ErrTooManyDishes   = errors.New("too_many_dishes")
	ErrInvalidCalories = errors.New("invalid_calories")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrInvalidStatus   = errors.New("invalid_status")

	ErrNotFound         = errors.New("not_found")
	ErrDuplicateMenu    = errors.New("duplicate_menu")
	ErrMenuPublished    = errors.New("menu_published")
	ErrAlreadyPublished = errors.New("already_published")
	ErrNothingToPublish = errors.New("nothing_to_publish")
)

// IsValidationError reports whether err was raised before any store I/O.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidCity),
		errors.Is(err, ErrCityNotAllowed),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidMealSlot),
		errors.Is(err, ErrInvalidDishes),
		errors.Is(err, ErrTooManyDishes),
		errors.Is(err, ErrInvalidCalories),
		errors.Is(err, ErrInvalidMonth),
		errors.Is(err, ErrInvalidStatus):
		return true
	}
	return false
}
