package seed

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	DryRun      bool
}

// Summary reports what Seed created.
type Summary struct {
	Users int
	Posts int
}

// Seed ensures the roles exist, then adds fake users and posts.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	logger := middleware.Logger
	logger.InfoContext(ctx, "starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts", opts.NumPosts),
	)

	if err := EnsureRoles(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure roles: %w", err)
	}

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	var defaultRole models.Role
	if err := db.WithContext(ctx).Where(map[string]any{"default": true}).First(&defaultRole).Error; err != nil {
		return nil, fmt.Errorf("load default role: %w", err)
	}

	factory, err := NewFactory(db.WithContext(ctx), FactoryOptions{Role: &defaultRole, DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return summary, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)

	if len(users) == 0 && opts.NumPosts > 0 {
		if err := db.WithContext(ctx).Find(&users).Error; err != nil {
			return summary, fmt.Errorf("load authors: %w", err)
		}
	}
	if len(users) == 0 {
		logger.InfoContext(ctx, "seeding completed without posts", slog.Int("users", summary.Users))
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[factory.rng.Intn(len(users))]
		posts = append(posts, factory.BuildPost(author))
	}
	if err := factory.CreatePostsBatch(posts); err != nil {
		return summary, fmt.Errorf("create posts: %w", err)
	}
	summary.Posts = len(posts)

	logger.InfoContext(ctx, "database seeding completed",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
	)
	return summary, nil
}

// clearData removes posts and users. Roles stay.
func clearData(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := tx.Delete(&models.Post{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.User{}).Error
}
