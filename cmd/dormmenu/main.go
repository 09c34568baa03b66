package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/smallbiznis/dormmenu/internal/migration"
	"github.com/smallbiznis/dormmenu/internal/observability"
	"github.com/smallbiznis/dormmenu/internal/server"
	"github.com/smallbiznis/dormmenu/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Public site and admin console on one listener
		server.Module,
	)
	app.Run()
}

// defaultNode keeps binaries that run side by side on distinct ID ranges.
const defaultNode = 1

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(defaultNode))
}
