package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectMenu     = "menu"
	ObjectDish     = "dish"
	ObjectAuditLog = "audit_log"
)

const (
	ActionMenuView    = "menu.view"
	ActionMenuCreate  = "menu.create"
	ActionMenuUpdate  = "menu.update"
	ActionMenuDelete  = "menu.delete"
	ActionMenuPublish = "menu.publish"
	ActionMenuIngest  = "menu.ingest"

	ActionDishRecount = "dish.recount"

	ActionAuditLogView = "audit_log.view"
)

const actionAuthorizationDenied = "authorization.denied"

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actorID string, role string, object string, action string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%s", actorID)
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, subject, role, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject, following the role carried by the token.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject, role, object, action string) {
	s.log.Info("authorization denied",
		zap.String("subject", subject),
		zap.String("role", role),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     actionAuthorizationDenied,
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"action":  action,
			"role":    role,
			"subject": subject,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	editor := [][]string{
		{ObjectMenu, ActionMenuView},
		{ObjectMenu, ActionMenuCreate},
		{ObjectMenu, ActionMenuUpdate},
		{ObjectMenu, ActionMenuDelete},
	}
	admin := append([][]string{
		{ObjectMenu, ActionMenuPublish},
		{ObjectMenu, ActionMenuIngest},
		{ObjectDish, ActionDishRecount},
		{ObjectAuditLog, ActionAuditLogView},
	}, editor...)

	policies := make([][]string, 0, len(editor)+len(admin))
	for _, rule := range editor {
		policies = append(policies, append([]string{"role:editor"}, rule...))
	}
	for _, rule := range admin {
		policies = append(policies, append([]string{"role:admin"}, rule...))
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
