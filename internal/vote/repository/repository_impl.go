package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/dormmenu/internal/vote/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, userID string, dishID int64) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND dish_id = ?", userID, dishID).
		Take(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vote *domain.Vote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO dish_votes (id, user_id, dish_id, vote_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		vote.ID,
		vote.UserID,
		vote.DishID,
		vote.VoteType,
		vote.CreatedAt,
		vote.UpdatedAt,
	).Error
}

func (r *repo) UpdateType(ctx context.Context, db *gorm.DB, id int64, voteType domain.VoteType, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE dish_votes SET vote_type = ?, updated_at = ? WHERE id = ?`,
		voteType,
		now,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM dish_votes WHERE id = ?`, id).Error
}

func (r *repo) FindUserVoteByDishName(ctx context.Context, db *gorm.DB, userID, dishName string) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).Raw(
		`SELECT v.id, v.user_id, v.dish_id, v.vote_type, v.created_at, v.updated_at
		 FROM dish_votes v
		 JOIN dishes d ON d.id = v.dish_id
		 WHERE v.user_id = ? AND d.name = ?`,
		userID,
		dishName,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) CountByDish(ctx context.Context, db *gorm.DB, dishID int64) (int64, int64, error) {
	type row struct {
		VoteType domain.VoteType
		Total    int64
	}
	var rows []row
	err := db.WithContext(ctx).Raw(
		`SELECT vote_type, COUNT(*) AS total FROM dish_votes WHERE dish_id = ? GROUP BY vote_type`,
		dishID,
	).Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var likes, dislikes int64
	for _, r := range rows {
		switch r.VoteType {
		case domain.VoteLike:
			likes = r.Total
		case domain.VoteDislike:
			dislikes = r.Total
		}
	}
	return likes, dislikes, nil
}
