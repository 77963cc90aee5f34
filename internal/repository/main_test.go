package repository

import (
	"testing"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB returns a migrated in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// seedRoles writes the standard roles and returns them keyed by name.
func seedRoles(t *testing.T, db *gorm.DB) map[string]*models.Role {
	t.Helper()
	out := make(map[string]*models.Role, len(models.RoleDefinitions))
	for _, def := range models.RoleDefinitions {
		role := &models.Role{Name: def.Name, Permissions: def.Permissions, Default: def.Default}
		require.NoError(t, db.Create(role).Error)
		out[def.Name] = role
	}
	return out
}

func createUser(t *testing.T, db *gorm.DB, email, username string, role *models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: username}
	require.NoError(t, u.SetPassword("cat"))
	if role != nil {
		u.RoleID = &role.ID
	}
	require.NoError(t, NewUserRepository(db).Create(t.Context(), u))
	return u
}

// useMiniredis points the cache package at a fresh miniredis for one test.
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}
