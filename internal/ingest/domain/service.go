package domain

import (
	"context"
	"errors"
)

// Service merges a batch into existing menus without creating duplicates.
// Per-day failures land in the report and never fail the batch.
type Service interface {
	Reconcile(ctx context.Context, batch Batch) (*Report, error)
}

// MonthLocker serializes reconciles of the same (city, month).
type MonthLocker interface {
	TryLockMonth(ctx context.Context, city string, year, month int) (string, bool, error)
	ReleaseMonth(ctx context.Context, city string, year, month int, token string) error
}

var (
	ErrInvalidCity      = errors.New("invalid_city")
	ErrInvalidMonth     = errors.New("invalid_month")
	ErrInvalidYear      = errors.New("invalid_year")
	ErrInvalidBatch     = errors.New("invalid_batch")
	ErrIngestInProgress = errors.New("ingest_in_progress")
)
