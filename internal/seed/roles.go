package seed

import (
	"context"
	"fmt"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureRoles upserts models.RoleDefinitions by name. Running it again
// rewrites permissions and the default flag, and clears the default flag on
// any role not in the definitions.
func EnsureRoles(ctx context.Context, db *gorm.DB) error {
	names := make([]string, 0, len(models.RoleDefinitions))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range models.RoleDefinitions {
			names = append(names, def.Name)
			role := models.Role{
				Name:        def.Name,
				Permissions: def.Permissions,
				Default:     def.Default,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"permissions", "default"}),
			}).Create(&role).Error; err != nil {
				return fmt.Errorf("upsert role %s: %w", def.Name, err)
			}
		}
		return tx.Model(&models.Role{}).
			Where("name NOT IN ?", names).
			Update("default", false).Error
	})
	if err != nil {
		return err
	}

	cache.InvalidateRoles(ctx)
	return nil
}
