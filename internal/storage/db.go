package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	// Register the pgx database/sql driver as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidAmount is returned when an expense amount, rounded to cents,
	// is not strictly positive or exceeds money.MaxAmount.
	ErrInvalidAmount = errors.New("amount must be positive and within range")
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB wraps a sql.DB connection pool. Queries use $N placeholders, which both
// the pgx and the sqlite drivers bind by position.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// parseURL picks a driver for a DATABASE_URL value. postgres:// URLs go to
// pgx; "sqlite:" prefixed values, plain paths and ":memory:" go to sqlite.
func parseURL(databaseURL string) (driver, dsn string, d dialect) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, dialectPostgres
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(databaseURL, "sqlite://"), dialectSQLite
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return "sqlite", strings.TrimPrefix(databaseURL, "sqlite:"), dialectSQLite
	default:
		return "sqlite", databaseURL, dialectSQLite
	}
}

// NewDB opens a database connection and runs migrations.
func NewDB(databaseURL string) (*DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database URL is not configured")
	}
	driver, dsn, d := parseURL(databaseURL)

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		// One connection keeps :memory: databases and PRAGMAs consistent.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// newWithConn wraps an existing pool without running migrations.
func newWithConn(conn *sql.DB, d dialect) *DB {
	return &DB{conn: conn, dialect: d}
}

func (db *DB) migrate() error {
	migrations := sqliteMigrations
	if db.dialect == dialectPostgres {
		migrations = postgresMigrations
	}
	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var sqliteMigrations = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		start_date DATE,
		end_date DATE,
		created_by INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trip_id INTEGER NOT NULL REFERENCES trips(id),
		user_id INTEGER NOT NULL REFERENCES users(id),
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pendente',
		receipt_url TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_trip ON expenses(trip_id)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		start_date DATE,
		end_date DATE,
		created_by BIGINT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id BIGSERIAL PRIMARY KEY,
		trip_id BIGINT NOT NULL REFERENCES trips(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pendente',
		receipt_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_trip ON expenses(trip_id)`,
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation recognises unique-constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
