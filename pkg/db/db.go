package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/dormmenu/internal/config"
	obslogger "github.com/smallbiznis/dormmenu/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

// Open connects the configured store with structured logging, tracing and pool metrics.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBType, err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DBName))); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.DBName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, fmt.Errorf("register metrics plugin: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Second)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sqlDB.PingContext(ctx)
			},
			OnStop: func(context.Context) error {
				log.Info("closing database connections")
				return sqlDB.Close()
			},
		})
	}

	log.Info("database configured", zap.String("type", cfg.DBType), zap.String("name", cfg.DBName))
	return conn, nil
}
