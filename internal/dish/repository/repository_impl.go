package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/dormmenu/internal/dish/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, dishes []*domain.Dish) error {
	if len(dishes) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&dishes).Error
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Dish, error) {
	return r.findByName(db.WithContext(ctx), name)
}

func (r *repo) FindByNameForUpdate(ctx context.Context, db *gorm.DB, name string) (*domain.Dish, error) {
	return r.findByName(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), name)
}

func (r *repo) findByName(db *gorm.DB, name string) (*domain.Dish, error) {
	var d domain.Dish
	err := db.Where("name = ?", name).Take(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *repo) FindByNames(ctx context.Context, db *gorm.DB, names []string) ([]domain.Dish, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var items []domain.Dish
	err := db.WithContext(ctx).
		Where("name IN ?", names).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Dish, error) {
	stmt := db.WithContext(ctx).Model(&domain.Dish{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	switch filter.SortBy {
	case domain.SortByLikes:
		stmt = stmt.Order("like_count DESC").Order("name ASC")
	case domain.SortByDislikes:
		stmt = stmt.Order("dislike_count DESC").Order("name ASC")
	case domain.SortByNewest:
		stmt = stmt.Order("created_at DESC").Order("id DESC")
	default:
		stmt = stmt.Order("name ASC")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var items []domain.Dish
	if err := stmt.Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) AddCounters(ctx context.Context, db *gorm.DB, id int64, likeDelta, dislikeDelta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE dishes
		 SET like_count = like_count + ?, dislike_count = dislike_count + ?, updated_at = ?
		 WHERE id = ?`,
		likeDelta,
		dislikeDelta,
		now,
		id,
	).Error
}

func (r *repo) SetCounters(ctx context.Context, db *gorm.DB, id int64, likes, dislikes int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE dishes SET like_count = ?, dislike_count = ?, updated_at = ? WHERE id = ?`,
		likes,
		dislikes,
		now,
		id,
	).Error
}
