package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratelite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/wordbox/backend/internal/config"
)

//go:embed migrations
var migrations embed.FS

func Connect(cfg config.DBConfig) (*sqlx.DB, error) {
	var dsn string
	switch cfg.Driver {
	case "postgres":
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
		)
	case "sqlite3":
		dsn = cfg.SQLitePath + "?_foreign_keys=on"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		// One connection keeps ":memory:" databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded migrations for the connection's dialect.
// The database handle stays open afterwards.
func Migrate(db *sqlx.DB) error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch db.DriverName() {
	case "postgres":
		driver, err = migratepg.WithInstance(db.DB, &migratepg.Config{})
	case "sqlite3":
		driver, err = migratelite.WithInstance(db.DB, &migratelite.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations/"+db.DriverName())
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// ── Query helpers ───────────────────────────────────────

// NotInClause returns " AND <column> NOT IN (?)" and its argument, or
// nothing when ids is empty (sqlx.In rejects empty slices).
func NotInClause(column string, ids []int64) (string, []interface{}) {
	if len(ids) == 0 {
		return "", nil
	}
	return " AND " + column + " NOT IN (?)", []interface{}{ids}
}

// Expand runs sqlx.In over the args and rebinds the placeholders for the
// connection's driver.
func Expand(db *sqlx.DB, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expand query: %w", err)
	}
	return db.Rebind(q), a, nil
}

// Day formats t's UTC calendar date for DATE columns. Passing a time.Time
// would let postgres convert it through the session TimeZone.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IsUniqueViolation reports whether err is a unique-constraint failure on
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
