package domain

import "time"

type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
)

func (v VoteType) Valid() bool {
	return v == VoteLike || v == VoteDislike
}

// Vote is the live opinion of one user about one dish. At most one exists per pair.
type Vote struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:255;not null;uniqueIndex:ux_dish_votes_user_dish,priority:1"`
	DishID    int64     `json:"dish_id" gorm:"not null;uniqueIndex:ux_dish_votes_user_dish,priority:2;index:ix_dish_votes_dish"`
	VoteType  VoteType  `json:"vote_type" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Vote) TableName() string { return "dish_votes" }
