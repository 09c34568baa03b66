package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/dormmenu/internal/audit"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/authorization"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/smallbiznis/dormmenu/internal/dish"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	"github.com/smallbiznis/dormmenu/internal/identity"
	"github.com/smallbiznis/dormmenu/internal/ingest"
	ingestdomain "github.com/smallbiznis/dormmenu/internal/ingest/domain"
	"github.com/smallbiznis/dormmenu/internal/menu"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	"github.com/smallbiznis/dormmenu/internal/observability"
	obsmiddleware "github.com/smallbiznis/dormmenu/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dormmenu/internal/observability/metrics"
	obstracing "github.com/smallbiznis/dormmenu/internal/observability/tracing"
	"github.com/smallbiznis/dormmenu/internal/providers"
	"github.com/smallbiznis/dormmenu/internal/ratelimit"
	"github.com/smallbiznis/dormmenu/internal/vote"
	votedomain "github.com/smallbiznis/dormmenu/internal/vote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the public site and the admin console from one engine.
var Module = fx.Module("server",
	audit.Module,
	authorization.Module,
	identity.Module,
	providers.Module,
	dish.Module,
	vote.Module,
	menu.Module,
	ratelimit.Module,
	ingest.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterPublicRoutes()
		s.RegisterAdminRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	verifier   identity.Verifier
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	dishSvc    dishdomain.Service
	voteSvc    votedomain.Service
	menuSvc    menudomain.Service
	ingestSvc  ingestdomain.Service
	limiter    *ratelimit.Limiter
	obsMetrics *obsmetrics.Metrics
}

// ServerParams lets the public-only binary start without the admin dependencies.
type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Verifier   identity.Verifier
	DishSvc    dishdomain.Service
	VoteSvc    votedomain.Service
	MenuSvc    menudomain.Service
	AuthzSvc   authorization.Service `optional:"true"`
	AuditSvc   auditdomain.Service   `optional:"true"`
	IngestSvc  ingestdomain.Service  `optional:"true"`
	Limiter    *ratelimit.Limiter    `optional:"true"`
	ObsMetrics *obsmetrics.Metrics   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		verifier:   p.Verifier,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		dishSvc:    p.DishSvc,
		voteSvc:    p.VoteSvc,
		menuSvc:    p.MenuSvc,
		ingestSvc:  p.IngestSvc,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterPublicRoutes() {
	api := s.engine.Group("/api")

	// -------- Dishes --------
	api.GET("/dishes", s.ListDishes)
	api.GET("/dishes/stats", s.DishStats)
	api.GET("/dishes/detail", s.GetDish)

	// -------- Votes --------
	api.GET("/votes", s.AuthRequired(), s.GetUserVote)
	api.POST("/votes/like", s.AuthRequired(), s.VoteRateLimit(), s.Like)
	api.POST("/votes/dislike", s.AuthRequired(), s.VoteRateLimit(), s.Dislike)

	// -------- Menus --------
	api.GET("/menus", s.ListPublishedMenus)
	api.GET("/menus/daily", s.DailyMenu)
	api.GET("/menus/monthly.pdf", s.MonthlyMenuPDF)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())

	admin.GET("/menus", s.authorize(authorization.ObjectMenu, authorization.ActionMenuView), s.ListMenus)
	admin.POST("/menus", s.authorize(authorization.ObjectMenu, authorization.ActionMenuCreate), s.CreateMenu)
	admin.POST("/menus/publish", s.authorize(authorization.ObjectMenu, authorization.ActionMenuPublish), s.PublishMenus)
	admin.POST("/menus/publish-month", s.authorize(authorization.ObjectMenu, authorization.ActionMenuPublish), s.PublishMonth)
	admin.POST("/menus/ingest", s.authorize(authorization.ObjectMenu, authorization.ActionMenuIngest), s.IngestMenus)
	admin.GET("/menus/:id", s.authorize(authorization.ObjectMenu, authorization.ActionMenuView), s.GetMenu)
	admin.PATCH("/menus/:id", s.authorize(authorization.ObjectMenu, authorization.ActionMenuUpdate), s.UpdateMenu)
	admin.DELETE("/menus/:id", s.authorize(authorization.ObjectMenu, authorization.ActionMenuDelete), s.DeleteMenu)
	admin.POST("/menus/:id/publish", s.authorize(authorization.ObjectMenu, authorization.ActionMenuPublish), s.PublishMenu)

	admin.POST("/dishes/recount", s.authorize(authorization.ObjectDish, authorization.ActionDishRecount), s.RecountDish)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
