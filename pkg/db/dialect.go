package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/dormmenu/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MySQLTableOptions makes dish names, cities and user ids compare byte for byte,
// matching Postgres and SQLite.
const MySQLTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

// Vote toggles read then write the dish row, so SQLite transactions take the
// write lock up front and wait instead of failing with SQLITE_BUSY.
const sqliteParams = "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"

func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&collation=utf8mb4_bin&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC application_name=%s",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
			applicationName(cfg.AppName),
		)), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg.DBPath)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

func sqliteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "dormmenu.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqliteParams
}

func applicationName(name string) string {
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		return "dormmenu"
	}
	return name
}
