package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT * FROM dishes WHERE name = ?", want: "SELECT"},
		{sql: "  insert into dish_votes (id) values (?)", want: "INSERT"},
		{sql: "UPDATE dishes SET like_count = like_count + ? WHERE id = ?", want: "UPDATE"},
		{sql: "SELECT * FROM dishes WHERE id = ? FOR UPDATE", want: "LOCK"},
		{sql: "WITH drafts AS (SELECT id FROM menus) DELETE FROM menus", want: "SELECT"},
		{sql: "", want: "UNKNOWN"},
		{sql: "VACUUM dishes", want: "UNKNOWN"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, operationFromSQL(tc.sql), tc.sql)
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	base := NewGormLogger(DefaultGormLoggerConfig())
	silent := base.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Warn, base.level)
	assert.Equal(t, gormlogger.Silent, silent.level)
}
