package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/joho/godotenv"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	source := migrate.Migrations()
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		exitOn(ctx, logg, "create migration", migrate.Create(target, *name))
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.Validate(source))
		fmt.Println("migrations valid")
		return
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "connect database", err)
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql database", err)

	migrator, err := migrate.New(sqlDB, logg, migrate.WithFS(source))
	exitOn(ctx, logg, "build migrator", err)

	switch *cmd {
	case "up":
		exitOn(ctx, logg, "migrate up", migrator.Up(ctx))
	case "down":
		exitOn(ctx, logg, "migrate down", migrator.Down(ctx))
	case "status":
		printStatus(ctx, logg, migrator)
	case "version":
		target, err := migrate.ParseVersion(*version)
		exitOn(ctx, logg, "parse version", err)
		exitOn(ctx, logg, "migrate to version", migrator.To(ctx, target))
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(2)
	}
}

func printStatus(ctx context.Context, logg *logger.Logger, migrator *migrate.Migrator) {
	statuses, err := migrator.Status(ctx)
	exitOn(ctx, logg, "migration status", err)
	for _, st := range statuses {
		applied := "pending"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-16d %-20s %s\n", st.Source.Version, applied, path.Base(st.Source.Path))
	}
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "step", step), "migrate.failed", err)
	os.Exit(1)
}
