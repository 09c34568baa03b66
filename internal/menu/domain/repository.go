package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	City     string
	From     *time.Time
	To       *time.Time
	Status   Status
	MealSlot MealSlot
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, menu *Menu) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Menu, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Menu, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Menu, error)

	// The conditional writes below only touch rows still in draft and report rows affected.
	UpdateDraft(ctx context.Context, db *gorm.DB, id int64, dishes []string, calories int, now time.Time) (int64, error)
	PublishDrafts(ctx context.Context, db *gorm.DB, ids []int64, at time.Time) (int64, error)
	DeleteDraft(ctx context.Context, db *gorm.DB, id int64) (int64, error)

	LockDraftIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]int64, error)
	LockMonthDraftIDs(ctx context.Context, db *gorm.DB, city string, from, to time.Time) ([]int64, error)
}
