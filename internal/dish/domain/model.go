package domain

import "time"

// Dish is a named food item. Counters are owned by the vote ledger and equal the
// number of live like and dislike votes referencing the dish.
type Dish struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null;uniqueIndex:ux_dishes_name"`
	Slug         string    `json:"slug" gorm:"size:255;not null;index:ix_dishes_slug"`
	LikeCount    int64     `json:"like_count" gorm:"column:like_count;not null"`
	DislikeCount int64     `json:"dislike_count" gorm:"column:dislike_count;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`
}

func (Dish) TableName() string { return "dishes" }
