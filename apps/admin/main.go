package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dormmenu/internal/audit"
	"github.com/smallbiznis/dormmenu/internal/authorization"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/smallbiznis/dormmenu/internal/dish"
	"github.com/smallbiznis/dormmenu/internal/identity"
	"github.com/smallbiznis/dormmenu/internal/ingest"
	"github.com/smallbiznis/dormmenu/internal/menu"
	"github.com/smallbiznis/dormmenu/internal/migration"
	"github.com/smallbiznis/dormmenu/internal/observability"
	"github.com/smallbiznis/dormmenu/internal/providers"
	"github.com/smallbiznis/dormmenu/internal/ratelimit"
	"github.com/smallbiznis/dormmenu/internal/server"
	"github.com/smallbiznis/dormmenu/internal/vote"
	"github.com/smallbiznis/dormmenu/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Admin console: menu authoring, imports, counter repair, audit trail
		authorization.Module,
		audit.Module,
		identity.Module,
		providers.Module,
		dish.Module,
		vote.Module, // recount
		menu.Module,
		ratelimit.Module,
		ingest.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAdminRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

// defaultNode keeps binaries that run side by side on distinct ID ranges.
const defaultNode = 3

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(defaultNode))
}
