package db

import (
	"testing"

	"github.com/smallbiznis/dormmenu/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func TestDialect(t *testing.T) {
	for _, dbType := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialect(config.Config{DBType: dbType, DBPath: "test.db"})
		assert.NoError(t, err, dbType)
		assert.Equal(t, dbType, d.Name())
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestDialect_DSN(t *testing.T) {
	cfg := config.Config{
		AppName: "dormmenu admin",
		DBHost:  "db",
		DBPort:  "3306",
		DBName:  "dormmenu",
		DBUser:  "app",
	}

	cfg.DBType = "mysql"
	d, err := Dialect(cfg)
	require.NoError(t, err)
	assert.Contains(t, d.(*mysql.Dialector).DSN, "collation=utf8mb4_bin")

	cfg.DBType = "postgres"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	assert.Contains(t, d.(*postgres.Dialector).DSN, "application_name=dormmenu-admin")

	cfg.DBType = "sqlite"
	cfg.DBPath = "file:menus.db?cache=shared"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	assert.Equal(t, "file:menus.db?cache=shared&"+sqliteParams, d.(*sqlite.Dialector).DSN)
}
