package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/dormmenu/internal/menu/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert returns domain.ErrDuplicateMenu only when (city, menu_date, meal_slot) is taken.
// Any other unique violation, such as an id collision, is returned as a duplicate key error.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, menu *domain.Menu) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "city"},
				{Name: "menu_date"},
				{Name: "meal_slot"},
			},
			DoNothing: true,
		}).
		Create(menu)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL ignores conflicts on every unique key, the primary key included.
		var taken int64
		if err := db.WithContext(ctx).Model(&domain.Menu{}).
			Where("city = ? AND menu_date = ? AND meal_slot = ?", menu.City, menu.MenuDate, menu.MealSlot).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken == 0 {
			return gorm.ErrDuplicatedKey
		}
		return domain.ErrDuplicateMenu
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Menu, error) {
	return r.findByID(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Menu, error) {
	return r.findByID(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) findByID(db *gorm.DB, id int64) (*domain.Menu, error) {
	var m domain.Menu
	err := db.Where("id = ?", id).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Menu, error) {
	stmt := db.WithContext(ctx).Model(&domain.Menu{})

	if city := strings.TrimSpace(filter.City); city != "" {
		stmt = stmt.Where("city = ?", city)
	}
	if filter.From != nil {
		stmt = stmt.Where("menu_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("menu_date < ?", *filter.To)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.MealSlot != "" {
		stmt = stmt.Where("meal_slot = ?", filter.MealSlot)
	}

	var items []domain.Menu
	err := stmt.
		Order("menu_date ASC").
		Order("city ASC").
		Order("meal_slot ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateDraft(ctx context.Context, db *gorm.DB, id int64, dishes []string, calories int, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE menus SET dishes = ?, calories = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		datatypes.NewJSONSlice(dishes),
		calories,
		now,
		id,
		domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) PublishDrafts(ctx context.Context, db *gorm.DB, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE menus SET status = ?, published_at = ?, updated_at = ?
		 WHERE id IN ? AND status = ?`,
		domain.StatusPublished,
		at,
		at,
		ids,
		domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteDraft(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM menus WHERE id = ? AND status = ?`,
		id,
		domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) LockDraftIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.Menu{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND status = ?", ids, domain.StatusDraft).
		Order("id ASC").
		Pluck("id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) LockMonthDraftIDs(ctx context.Context, db *gorm.DB, city string, from, to time.Time) ([]int64, error) {
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.Menu{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("city = ? AND menu_date >= ? AND menu_date < ? AND status = ?", city, from, to, domain.StatusDraft).
		Order("menu_date ASC").
		Order("meal_slot ASC").
		Pluck("id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
