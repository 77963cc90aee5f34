// Command seed fills the database with roles and fake users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	rolesOnly := flag.Bool("roles-only", false, "Only upsert the standard roles")
	numUsers := flag.Int("users", 100, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", false, "Delete existing users and posts before seeding")
	dryRun := flag.Bool("dry-run", false, "Build records without writing them")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	if *rolesOnly {
		if err := seed.EnsureRoles(ctx, db); err != nil {
			log.Fatalf("❌ Role seeding failed: %v", err)
		}
		log.Println("✨ Roles are up to date.")
		return
	}

	log.Printf("Target: %d users, %d posts, clean=%v dry-run=%v\n", *numUsers, *numPosts, *shouldClean, *dryRun)

	summary, err := seed.Seed(ctx, db, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! Created %d users and %d posts.\n", summary.Users, summary.Posts)
	log.Printf("📧 All test users have the password: %s\n", seed.DefaultPassword)
}
