package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Service is the dish catalog. It creates dishes on first reference and never deletes them.
type Service interface {
	EnsureExists(ctx context.Context, name string) error
	EnsureMany(ctx context.Context, names []string) error
	FindByName(ctx context.Context, name string) (*Response, error)
	BulkStats(ctx context.Context, names []string) ([]Stats, error)
	MissingNames(ctx context.Context, names []string) ([]string, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	// WithTx returns a catalog bound to the caller's transaction.
	WithTx(tx *gorm.DB) Service
}

const (
	SortByName     = "name"
	SortByLikes    = "likes"
	SortByDislikes = "dislikes"
	SortByNewest   = "newest"
)

type ListRequest struct {
	Query  string
	SortBy string
	Limit  int
}

type Stats struct {
	Name     string `json:"name"`
	Likes    int64  `json:"likes"`
	Dislikes int64  `json:"dislikes"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
)
