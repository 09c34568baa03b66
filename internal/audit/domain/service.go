package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/dormmenu/pkg/db/pagination"
)

type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service keeps an append-only trail of administrative changes. The actor is taken from ctx.
type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
