package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnore inserts dishes whose name is not taken yet and leaves existing rows untouched.
	InsertIgnore(ctx context.Context, db *gorm.DB, dishes []*Dish) error
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Dish, error)
	FindByNameForUpdate(ctx context.Context, db *gorm.DB, name string) (*Dish, error)
	FindByNames(ctx context.Context, db *gorm.DB, names []string) ([]Dish, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Dish, error)
	AddCounters(ctx context.Context, db *gorm.DB, id int64, likeDelta, dislikeDelta int64, now time.Time) error
	SetCounters(ctx context.Context, db *gorm.DB, id int64, likes, dislikes int64, now time.Time) error
}
