// Command migrate applies, inspects and rolls back the database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

const usage = `Usage: go run ./cmd/migrate <command>

Commands:
  up              apply pending SQL migrations and upsert the roles
  auto            run GORM AutoMigrate (development and test only)
  status          show the schema policy and pending migrations
  down [version]  roll back the latest migration`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{SkipSchema: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	switch flag.Arg(0) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		if err := seed.EnsureRoles(ctx, db); err != nil {
			log.Fatalf("❌ Role upsert failed: %v", err)
		}
		log.Println("✅ Schema is up to date")

	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			log.Fatalf("❌ AutoMigrate failed: %v", err)
		}
		log.Println("✅ AutoMigrate complete")

	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			log.Fatalf("❌ Status failed: %v", err)
		}
		fmt.Printf("mode:     %s (env %s)\n", status.Mode, status.Environment)
		fmt.Printf("sql:      %t\n", status.WillRunSQL)
		fmt.Printf("auto:     %t\n", status.WillRunAutoMigrate)
		fmt.Printf("applied:  %v\n", status.AppliedVersions)
		for _, m := range status.PendingMigrations {
			fmt.Printf("pending:  %s\n", m)
		}

	case "down":
		version := 0
		if flag.NArg() > 1 {
			if version, err = strconv.Atoi(flag.Arg(1)); err != nil {
				log.Fatalf("Invalid version %q", flag.Arg(1))
			}
		}
		m, err := database.RollbackMigration(ctx, db, version)
		if err != nil {
			log.Fatalf("❌ Rollback failed: %v", err)
		}
		log.Printf("✅ Rolled back %s", m)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
