package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindForUpdate(ctx context.Context, db *gorm.DB, userID string, dishID int64) (*Vote, error)
	Insert(ctx context.Context, db *gorm.DB, vote *Vote) error
	UpdateType(ctx context.Context, db *gorm.DB, id int64, voteType VoteType, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	FindUserVoteByDishName(ctx context.Context, db *gorm.DB, userID, dishName string) (*Vote, error)
	CountByDish(ctx context.Context, db *gorm.DB, dishID int64) (likes int64, dislikes int64, err error)
}
