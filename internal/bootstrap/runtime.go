// Package bootstrap prepares the database and Redis for the commands in cmd/.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipRoles leaves the roles table untouched.
	SkipRoles bool
}

// InitRuntime connects to the database and Redis, upserts the standard roles
// and promotes the ADMIN_EMAIL account if it already exists.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if !opts.SkipRoles {
		if err := seed.EnsureRoles(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure roles: %w", err)
		}
	}

	if err := EnsureAdministrator(ctx, db, cfg.AdminEmail); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap administrator: %w", err)
	}

	return db, r, nil
}

// EnsureAdministrator gives the account registered under email the
// administrator role. Accounts registered later get it at creation.
func EnsureAdministrator(ctx context.Context, db *gorm.DB, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	var user models.User
	err := db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := SetRole(ctx, db, strconv.FormatUint(uint64(user.ID), 10), models.RoleAdministrator); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "administrator ensured", slog.String("email", user.Email))
	return nil
}

// SetRole assigns the named role to the account identified by ref, which is a
// numeric ID, an email address or a username. It returns the updated account.
func SetRole(ctx context.Context, db *gorm.DB, ref, roleName string) (*models.User, error) {
	var role models.Role
	if err := db.WithContext(ctx).Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Role", roleName)
		}
		return nil, err
	}

	user, err := findUser(ctx, db, ref)
	if err != nil {
		return nil, err
	}

	if user.RoleID == nil || *user.RoleID != role.ID {
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("role_id", role.ID).Error; err != nil {
			return nil, err
		}
		cache.InvalidateUser(ctx, user.ID)
	}

	user.RoleID = &role.ID
	user.Role = &role
	return user, nil
}

// ListByRole returns the accounts holding the named role.
func ListByRole(ctx context.Context, db *gorm.DB, roleName string) ([]models.User, error) {
	role, err := repository.NewRoleRepository(db).GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, models.NewNotFoundError("Role", roleName)
	}
	return repository.NewUserRepository(db).ListByRole(ctx, role.ID)
}

func findUser(ctx context.Context, db *gorm.DB, ref string) (*models.User, error) {
	q := db.WithContext(ctx)
	switch id, err := strconv.ParseUint(ref, 10, 64); {
	case err == nil:
		q = q.Where("id = ?", id)
	case strings.Contains(ref, "@"):
		q = q.Where("LOWER(email) = ?", strings.ToLower(ref))
	default:
		q = q.Where("username = ?", ref)
	}

	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", ref)
		}
		return nil, err
	}
	return &user, nil
}
