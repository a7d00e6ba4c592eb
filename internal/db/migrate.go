package db

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var ledgerMigrations embed.FS

// RunMigrations brings the ledger schema (counters, transaction log, reference
// and alert-sequence tables) up to date from the embedded migration files.
// Safe to run on every startup; an up-to-date schema is a no-op.
func RunMigrations(dsn string, logger *log.Logger) error {
	conn, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer conn.Close()

	source, err := iofs.New(ledgerMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	target, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", target)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply ledger migrations: %w", err)
		}
		logger.Printf("ledger schema already up to date")
		return nil
	}

	version, dirty, _ := m.Version()
	if dirty {
		return fmt.Errorf("ledger schema dirty at version %d", version)
	}
	logger.Printf("ledger schema migrated to version %d", version)
	return nil
}
