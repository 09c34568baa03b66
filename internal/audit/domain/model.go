package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionMenuCreated        = "menu.created"
	ActionMenuUpdated        = "menu.updated"
	ActionMenuPublished      = "menu.published"
	ActionMenuBulkPublished  = "menu.bulk_published"
	ActionMenuMonthPublished = "menu.month_published"
	ActionMenuDeleted        = "menu.deleted"
	ActionMenuIngested       = "menu.ingested"
	ActionDishRecounted      = "dish.recounted"
)

const (
	TargetTypeMenu  = "menu"
	TargetTypeMonth = "menu_month"
	TargetTypeDish  = "dish"
)

const ActorRoleSystem = "system"

type AuditLog struct {
	ID         int64             `json:"id,string" gorm:"primaryKey"`
	ActorRole  string            `json:"actor_role" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"size:64;not null;index:ix_audit_logs_action"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"size:512;index:ix_audit_logs_target"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index:ix_audit_logs_created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        int64
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
