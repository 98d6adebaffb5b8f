package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type Database struct {
	db *sqlx.DB
}

func NewDatabase(driver, dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection also keeps :memory: databases intact.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

// schema is portable between SQLite and PostgreSQL. JSON columns are stored as text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		phone_number TEXT NOT NULL,
		name TEXT,
		avatar_url TEXT,
		user_id TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE (phone_number, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		telnyx_message_id TEXT UNIQUE,
		contact_id TEXT NOT NULL REFERENCES contacts(id),
		direction TEXT NOT NULL,
		message_type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		media_urls TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		from_number TEXT NOT NULL,
		to_number TEXT NOT NULL,
		user_id TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inbound_settings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		auto_reply_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		auto_reply_message TEXT NOT NULL DEFAULT '',
		business_hours_only BOOLEAN NOT NULL DEFAULT FALSE,
		business_hours_start TEXT NOT NULL DEFAULT '09:00:00',
		business_hours_end TEXT NOT NULL DEFAULT '17:00:00',
		business_days TEXT NOT NULL DEFAULT '[1,2,3,4,5]',
		keyword_filters TEXT NOT NULL DEFAULT '[]',
		blocked_numbers TEXT NOT NULL DEFAULT '[]',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messaging_profiles (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		name TEXT NOT NULL,
		webhook_url TEXT,
		webhook_failover_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		user_id TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_contact_id ON messages(contact_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_active_profile_id ON messaging_profiles(profile_id) WHERE is_active = TRUE`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON messaging_profiles(user_id)`,
}

func createTables(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for repositories.
func (d *Database) DB() *sqlx.DB {
	if d == nil {
		return nil
	}
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.db == nil {
		return errors.New("database is closed")
	}
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}

// isUniqueViolation recognizes unique-constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto package sentinels.
func translate(err error) error {
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
