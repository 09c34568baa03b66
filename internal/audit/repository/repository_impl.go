package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/dormmenu/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, actor_role, actor_id, action, target_type, target_id,
			metadata, request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorRole,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.RequestID,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actorID := strings.TrimSpace(filter.ActorID); actorID != "" {
		stmt = stmt.Where("actor_id = ?", actorID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
