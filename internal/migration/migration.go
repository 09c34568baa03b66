package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	votedomain "github.com/smallbiznis/dormmenu/internal/vote/domain"
	pkgdb "github.com/smallbiznis/dormmenu/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, for dialects without SQL migrations.
func Models() []any {
	return []any{
		&dishdomain.Dish{},
		&votedomain.Vote{},
		&menudomain.Menu{},
		&auditdomain.AuditLog{},
	}
}

// Migrate applies the versioned SQL migrations on Postgres and falls back to AutoMigrate elsewhere.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		if conn.Dialector.Name() == "mysql" {
			conn = conn.Set("gorm:table_options", pkgdb.MySQLTableOptions)
		}
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
