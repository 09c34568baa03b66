package db

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "translated", err: fmt.Errorf("create menu: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_menus_city_date_slot"}), want: true},
		{name: "postgres other", err: &pgconn.PgError{Code: "40P01"}, want: false},
		{name: "mysql", err: &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'menus.PRIMARY'"}, want: true},
		{name: "mysql other", err: &mysqldriver.MySQLError{Number: 1213}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: menus.city, menus.menu_date, menus.meal_slot"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestDuplicateKeyConstraint(t *testing.T) {
	assert.Equal(t, "ux_menus_city_date_slot", DuplicateKeyConstraint(&pgconn.PgError{Code: "23505", ConstraintName: "ux_menus_city_date_slot"}))
	assert.Equal(t, "PRIMARY", DuplicateKeyConstraint(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'menus.PRIMARY'"}))
	assert.Equal(t, "menus.id", DuplicateKeyConstraint(errors.New("constraint failed: UNIQUE constraint failed: menus.id (1555)")))
	assert.Empty(t, DuplicateKeyConstraint(errors.New("connection refused")))
	assert.Empty(t, DuplicateKeyConstraint(gorm.ErrDuplicatedKey))
}
