package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFragment = "UNIQUE constraint failed"
)

// IsDuplicateKeyErr reports a unique violation from any supported driver.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	// SQLite drivers only expose the message portably.
	msg := err.Error()
	return strings.Contains(msg, sqliteUniqueFragment) ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Error 1062")
}

// DuplicateKeyConstraint names the violated unique index when the driver reports it.
// Callers use it to tell a natural-key clash from an id clash.
func DuplicateKeyConstraint(err error) string {
	if !IsDuplicateKeyErr(err) {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// Duplicate entry 'x' for key 'menus.PRIMARY'
		if idx := strings.LastIndex(myErr.Message, "for key '"); idx >= 0 {
			key := strings.TrimSuffix(myErr.Message[idx+len("for key '"):], "'")
			if dot := strings.LastIndex(key, "."); dot >= 0 {
				key = key[dot+1:]
			}
			return key
		}
		return ""
	}
	// UNIQUE constraint failed: menus.id
	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniqueFragment+": "); idx >= 0 {
		target := msg[idx+len(sqliteUniqueFragment)+2:]
		if paren := strings.Index(target, " ("); paren >= 0 {
			target = target[:paren]
		}
		return strings.TrimSpace(target)
	}
	return ""
}
