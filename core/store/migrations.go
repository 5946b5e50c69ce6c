package store

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	"keywatch/core/utils"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id=1),
		interval_min INTEGER NOT NULL DEFAULT 5,
		timeout_sec INTEGER NOT NULL DEFAULT 10,
		keyword TEXT NOT NULL DEFAULT 'Online',
		channel_ref TEXT NOT NULL DEFAULT '',
		retention_days INTEGER NOT NULL DEFAULT 90,
		updated_at INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS probe_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		up INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_probe_log_ts ON probe_log(ts);`,
	`CREATE TABLE IF NOT EXISTS downtimes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref TEXT NOT NULL UNIQUE,
		start_ts INTEGER NOT NULL,
		end_ts INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_downtimes_start_ts ON downtimes(start_ts);`,
}

// ApplyMigrations brings the schema up to date. Postgres goes through goose;
// sqlite applies the statement list directly, as every statement is
// idempotent.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	if isPG {
		return applyGooseMigrations(ctx, db, logger)
	}
	for _, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	logger.Infof("store: sqlite schema up to date")
	return nil
}

func applyGooseMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return err
	}
	logger.Infof("store: postgres schema at goose version %d", version)
	return nil
}
