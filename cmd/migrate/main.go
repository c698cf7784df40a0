package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/navid-fn/compass/configs"
	"github.com/navid-fn/compass/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dir := flag.String("dir", "migrations", "directory with migration files")
	command := flag.String("command", "up", "goose command: up, down, status, version")
	flag.Parse()

	cfg := configs.AppLoad()

	db, err := storage.Open(cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to unwrap sql.DB", "error", err)
		os.Exit(1)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Error("failed to set goose dialect", "error", err)
		os.Exit(1)
	}

	var gooseErr error
	switch *command {
	case "up":
		gooseErr = goose.Up(sqlDB, *dir)
	case "down":
		gooseErr = goose.Down(sqlDB, *dir)
	case "status":
		gooseErr = goose.Status(sqlDB, *dir)
	case "version":
		gooseErr = goose.Version(sqlDB, *dir)
	default:
		logger.Error("unknown command", "command", *command)
		os.Exit(1)
	}
	if gooseErr != nil {
		logger.Error("migration failed", "command", *command, "error", gooseErr)
		os.Exit(1)
	}

	logger.Info("migration completed", "command", *command)
}
