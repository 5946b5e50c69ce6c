package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"keywatch/config"
	"keywatch/core/utils"
)

// MonitorStore is everything the engine, aggregator and API need from the
// persistence layer.
type MonitorStore interface {
	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, settings *Settings) error
	UpdateSettingField(ctx context.Context, field, value string) error

	AppendEvent(ctx context.Context, ts time.Time, up bool) error
	EventsSince(ctx context.Context, since time.Time) ([]ProbeEvent, error)
	EventsInRange(ctx context.Context, start, end time.Time) ([]ProbeEvent, error)
	LastEvent(ctx context.Context) (*ProbeEvent, error)
	EventsSummarySince(ctx context.Context, since time.Time) (up int, total int, err error)
	EventsSummaryBetween(ctx context.Context, start, end time.Time) (up int, total int, err error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	OpenDowntime(ctx context.Context, start time.Time) (*DowntimeInterval, error)
	CloseLastOpenDowntime(ctx context.Context, end time.Time) error
	LastDowntime(ctx context.Context) (*DowntimeInterval, error)
	ListDowntimes(ctx context.Context, limit int) ([]DowntimeInterval, error)
}

type monitorStore struct {
	db       *sql.DB
	postgres bool
	defaults Settings
}

// NewMonitorStore wraps db. The defaults seed the settings row on first read.
func NewMonitorStore(db *sql.DB, defaults Settings) MonitorStore {
	pg, _ := isPostgresDB(context.Background(), db)
	return &monitorStore{db: db, postgres: pg, defaults: defaults}
}

// NewDB opens the configured database. sqlite is the default driver and
// creates the parent directory of the file when needed.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(8)
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Infof("store: connected to postgres")
		return db, nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// modernc sqlite serializes writes; a single writer keeps WAL happy.
		db.SetMaxOpenConns(1)
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Infof("store: opened sqlite database %s", cfg.DBPath)
		return db, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.DBDriver)
	}
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return false, nil
	}
	return strings.Contains(strings.ToLower(version), "postgresql"), nil
}

// rebind rewrites ? placeholders to $n for postgres. Queries are written in
// sqlite form throughout the package.
func (s *monitorStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *monitorStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *monitorStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *monitorStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Timestamps are stored as integer unix milliseconds in both drivers.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
