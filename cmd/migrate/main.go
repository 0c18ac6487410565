// Command migrate applies the embedded schema migrations to the database
// named by DATABASE_URL.
package main

import (
	"log/slog"
	"os"

	"saaskit/internal/infra/persistence/migrate"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if err := migrate.RunMigrations(databaseURL); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migrations applied")
}
