package migration

import (
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/smallbiznis/dormmenu/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm/schema"
)

func TestMigrate_AutoMigratesNonPostgres(t *testing.T) {
	db := testutil.OpenDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrate is idempotent")

	for _, table := range []string{"dishes", "dish_votes", "menus", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("menus", "ux_menus_city_date_slot"))
	assert.True(t, db.Migrator().HasIndex("dish_votes", "ux_dish_votes_user_dish"))
}

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

// MySQL refuses keys on TEXT/BLOB columns without a prefix length.
func TestModels_MySQLIndexedColumnsAreBounded(t *testing.T) {
	precision := 3
	dialector := mysql.New(mysql.Config{
		SkipInitializeWithVersion: true,
		DefaultDatetimePrecision:  &precision,
	})

	for _, model := range Models() {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		indexes := s.ParseIndexes()
		require.NotEmpty(t, indexes, s.Table)
		for _, idx := range indexes {
			for _, opt := range idx.Fields {
				dataType := strings.ToLower(dialector.DataTypeOf(opt.Field))
				assert.NotContains(t, dataType, "text", "%s.%s (%s)", s.Table, opt.DBName, idx.Name)
				assert.NotContains(t, dataType, "blob", "%s.%s (%s)", s.Table, opt.DBName, idx.Name)
			}
		}
	}

	s, err := schema.Parse(Models()[0], &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "varchar(255)", dialector.DataTypeOf(s.LookUpField("name")))
}
