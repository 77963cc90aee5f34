// Package main provides account role utilities for quill.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"quill/internal/bootstrap"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin/main.go set-role <user> <role>  - Assign a role (user is an ID, email or username)")
	fmt.Println("  go run ./cmd/admin/main.go promote <user>          - Make the user an Administrator")
	fmt.Println("  go run ./cmd/admin/main.go demote <user>           - Return the user to the User role")
	fmt.Println("  go run ./cmd/admin/main.go list-admins             - List all administrators")
	fmt.Println("  go run ./cmd/admin/main.go list-role <role>        - List all users holding a role")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Role changes invalidate cached users.
	cache.InitRedis(cfg.RedisURL)

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "set-role":
		requireArgs(args, 2, "set-role <user> <role>")
		setRole(ctx, db, args[0], args[1])
	case "promote":
		requireArgs(args, 1, "promote <user>")
		setRole(ctx, db, args[0], models.RoleAdministrator)
	case "demote":
		requireArgs(args, 1, "demote <user>")
		setRole(ctx, db, args[0], models.RoleUser)
	case "list-admins":
		listRole(ctx, db, models.RoleAdministrator)
	case "list-role":
		requireArgs(args, 1, "list-role <role>")
		listRole(ctx, db, args[0])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, form string) {
	if len(args) < n {
		fmt.Printf("Usage: go run ./cmd/admin/main.go %s\n", form)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, db *gorm.DB, ref, role string) {
	user, err := bootstrap.SetRole(ctx, db, ref, role)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			fmt.Println(appErr.Message)
			os.Exit(1)
		}
		log.Fatalf("Failed to set role: %v", err)
	}
	fmt.Printf("✅ %s (ID: %d) is now %s\n", user.Username, user.ID, user.Role.Name)
}

func listRole(ctx context.Context, db *gorm.DB, role string) {
	users, err := bootstrap.ListByRole(ctx, db, role)
	if err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}

	if len(users) == 0 {
		fmt.Printf("No users hold the %s role\n", role)
		return
	}

	fmt.Printf("\n📋 %s accounts:\n", role)
	fmt.Println("─────────────────────────────────────")
	for _, u := range users {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
