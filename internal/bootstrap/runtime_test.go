package bootstrap

import (
	"context"
	"testing"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func initTestRuntime(t *testing.T, adminEmail string) *gorm.DB {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		Env:            "test",
		DBDriver:       "sqlite",
		DBSQLitePath:   "file::memory:",
		DBSchemaMode:   "auto",
		DBMaxOpenConns: 1,
		RedisURL:       mr.Addr(),
		AdminEmail:     adminEmail,
	}

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, username string) *models.User {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where("name = ?", models.RoleUser).First(&role).Error)
	u := &models.User{Email: email, Username: username, RoleID: &role.ID}
	require.NoError(t, db.Create(u).Error)
	return u
}

func roleOf(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var u models.User
	require.NoError(t, db.Preload("Role").First(&u, id).Error)
	require.NotNil(t, u.Role)
	return u.Role.Name
}

func TestInitRuntime_SeedsRoles(t *testing.T) {
	db := initTestRuntime(t, "")

	var roles []models.Role
	require.NoError(t, db.Order("id").Find(&roles).Error)
	require.Len(t, roles, len(models.RoleDefinitions))

	defaults := 0
	for _, r := range roles {
		if r.Default {
			defaults++
			assert.Equal(t, models.RoleUser, r.Name)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestEnsureAdministrator(t *testing.T) {
	db := initTestRuntime(t, "")
	ctx := context.Background()

	admin := createUser(t, db, "Boss@Example.com", "boss")
	other := createUser(t, db, "john@example.com", "john")

	require.NoError(t, EnsureAdministrator(ctx, db, ""))
	assert.Equal(t, models.RoleUser, roleOf(t, db, admin.ID))

	require.NoError(t, EnsureAdministrator(ctx, db, "nobody@example.com"))

	require.NoError(t, EnsureAdministrator(ctx, db, " boss@example.com "))
	assert.Equal(t, models.RoleAdministrator, roleOf(t, db, admin.ID))
	assert.Equal(t, models.RoleUser, roleOf(t, db, other.ID))

	// idempotent
	require.NoError(t, EnsureAdministrator(ctx, db, "boss@example.com"))
	assert.Equal(t, models.RoleAdministrator, roleOf(t, db, admin.ID))
}

func TestSetRole(t *testing.T) {
	db := initTestRuntime(t, "")
	ctx := context.Background()
	john := createUser(t, db, "john@example.com", "john")

	refs := []struct {
		ref  string
		role string
	}{
		{"john", models.RoleModerator},
		{"JOHN@example.com", models.RoleAdministrator},
		{"1", models.RoleUser},
	}
	for _, tt := range refs {
		t.Run(tt.ref, func(t *testing.T) {
			user, err := SetRole(ctx, db, tt.ref, tt.role)
			require.NoError(t, err)
			assert.Equal(t, john.ID, user.ID)
			assert.Equal(t, tt.role, user.Role.Name)
			assert.Equal(t, tt.role, roleOf(t, db, john.ID))
		})
	}

	_, err := SetRole(ctx, db, "nobody", models.RoleUser)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	_, err = SetRole(ctx, db, "john", "Overlord")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestListByRole(t *testing.T) {
	db := initTestRuntime(t, "")
	ctx := context.Background()
	createUser(t, db, "john@example.com", "john")
	susan := createUser(t, db, "susan@example.com", "susan")

	_, err := SetRole(ctx, db, "susan", models.RoleAdministrator)
	require.NoError(t, err)

	admins, err := ListByRole(ctx, db, models.RoleAdministrator)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, susan.ID, admins[0].ID)

	_, err = ListByRole(ctx, db, "Overlord")
	assert.Error(t, err)
}
