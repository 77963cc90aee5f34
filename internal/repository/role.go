package repository

import (
	"context"
	"errors"
	"fmt"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
)

// errNoRole keeps negative lookups out of the cache.
var errNoRole = errors.New("role not found")

// RoleRepository reads roles. Role writes go through seed.EnsureRoles.
type RoleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Role, error)
	GetDefault(ctx context.Context) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	GetByPermissions(ctx context.Context, perms models.Permission) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository returns a new RoleRepository implementation.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Role", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &role, nil
}

// GetDefault returns the role new accounts get, or nil if roles are not seeded.
func (r *roleRepository) GetDefault(ctx context.Context) (*models.Role, error) {
	return r.lookup(ctx, "default", map[string]any{"default": true})
}

// GetByName returns nil, nil when no role has that name.
func (r *roleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return r.lookup(ctx, "name:"+name, map[string]any{"name": name})
}

// GetByPermissions returns the role whose permission set equals perms exactly.
func (r *roleRepository) GetByPermissions(ctx context.Context, perms models.Permission) (*models.Role, error) {
	return r.lookup(ctx, fmt.Sprintf("perm:%d", perms), map[string]any{"permissions": perms})
}

func (r *roleRepository) lookup(ctx context.Context, key string, where map[string]any) (*models.Role, error) {
	var role models.Role
	err := cache.Aside(ctx, cache.RoleKey(key), &role, cache.RoleTTL, func() error {
		err := r.db.WithContext(ctx).Where(where).Order("id").First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNoRole
		}
		return err
	})
	if errors.Is(err, errNoRole) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}
