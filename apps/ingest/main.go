package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dormmenu/internal/audit"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/smallbiznis/dormmenu/internal/dish"
	"github.com/smallbiznis/dormmenu/internal/ingest"
	ingestdomain "github.com/smallbiznis/dormmenu/internal/ingest/domain"
	"github.com/smallbiznis/dormmenu/internal/menu"
	"github.com/smallbiznis/dormmenu/internal/migration"
	"github.com/smallbiznis/dormmenu/internal/observability"
	obscontext "github.com/smallbiznis/dormmenu/internal/observability/context"
	"github.com/smallbiznis/dormmenu/internal/providers"
	"github.com/smallbiznis/dormmenu/internal/ratelimit"
	"github.com/smallbiznis/dormmenu/pkg/db"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

const runTimeout = 5 * time.Minute

func main() {
	file := pflag.StringP("file", "f", "", "month batch to import (YAML or JSON)")
	author := pflag.StringP("author", "a", "", "user id recorded as the author of created menus")
	node := pflag.Int64("node", -1, "snowflake node for generated ids (overrides SNOWFLAKE_NODE)")
	pflag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "ingest: --file is required")
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(*file, *author, *node); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(path, author string, node int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := ingest.ParseBatch(f)
	if err != nil {
		return err
	}
	batch.AuthorID = author

	var svc ingestdomain.Service
	app := fx.New(
		fx.NopLogger,
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config {
			if node >= 0 {
				cfg.SnowflakeNode = node
			}
			return cfg
		}),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		audit.Module,
		providers.Module,
		dish.Module,
		menu.Module,
		ratelimit.Module,
		ingest.Module,

		fx.Populate(&svc),
	)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	ctx = obscontext.WithActor(ctx, auditdomain.ActorRoleSystem, author)
	report, err := svc.Reconcile(ctx, batch)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// defaultNode keeps binaries that run side by side on distinct ID ranges.
const defaultNode = 4

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(defaultNode))
}
