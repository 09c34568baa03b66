package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/clock"
	obscontext "github.com/smallbiznis/dormmenu/internal/observability/context"
	"github.com/smallbiznis/dormmenu/pkg/db/pagination"
	"github.com/smallbiznis/dormmenu/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorRole, actorID := obscontext.ActorFromContext(ctx)
	if actorRole == "" {
		actorRole = auditdomain.ActorRoleSystem
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if correlationID := correlation.ExtractCorrelationID(ctx); correlationID != "" {
		payload["correlation_id"] = correlationID
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate().Int64(),
		ActorRole:  actorRole,
		ActorID:    optional(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(entry.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		RequestID:  optional(obscontext.RequestIDFromContext(ctx)),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(strings.TrimSpace(decoded.ID), 10, 64)
		if err != nil || id <= 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        strconv.FormatInt(item.ID, 10),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
