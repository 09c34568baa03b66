package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/smallbiznis/dormmenu/internal/dish"
	"github.com/smallbiznis/dormmenu/internal/identity"
	"github.com/smallbiznis/dormmenu/internal/menu"
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

		// Public site: browsing, voting and the printable month sheet
		identity.Module,
		providers.Module,
		dish.Module,
		vote.Module,
		menu.Module,
		ratelimit.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterPublicRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

// defaultNode keeps binaries that run side by side on distinct ID ranges.
const defaultNode = 2

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(defaultNode))
}
