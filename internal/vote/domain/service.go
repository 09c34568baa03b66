package domain

import (
	"context"
	"errors"

	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
)

// Service is the vote ledger. It is the only writer of dish like/dislike counters.
type Service interface {
	ApplyLike(ctx context.Context, userID, dishName string) (*Result, error)
	ApplyDislike(ctx context.Context, userID, dishName string) (*Result, error)
	GetUserVote(ctx context.Context, userID, dishName string) (*VoteType, error)
	BulkStats(ctx context.Context, names []string) ([]dishdomain.Stats, error)
	// Recount re-derives a dish's counters from the ledger and reports what changed.
	Recount(ctx context.Context, dishName string) (*RecountResult, error)
}

type Result struct {
	Dish     string    `json:"dish"`
	Likes    int64     `json:"likes"`
	Dislikes int64     `json:"dislikes"`
	UserVote *VoteType `json:"user_vote"`
}

type RecountResult struct {
	Dish             string `json:"dish"`
	Likes            int64  `json:"likes"`
	Dislikes         int64  `json:"dislikes"`
	PreviousLikes    int64  `json:"previous_likes"`
	PreviousDislikes int64  `json:"previous_dislikes"`
	Repaired         bool   `json:"repaired"`
}

var (
	ErrInvalidDishName = errors.New("invalid_dish_name")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidVoteType = errors.New("invalid_vote_type")
	ErrDishNotFound    = errors.New("dish_not_found")
)
