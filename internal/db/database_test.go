package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	// Test with empty DSN
	db, err := NewDatabase(DriverSQLite, "")
	assert.Error(t, err)
	assert.Nil(t, db)

	// Test with unknown driver
	db, err = NewDatabase("mysql", "root@/db")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	assert.Nil(t, db)

	// Test with valid in-memory DSN
	db, err = NewDatabase(DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
}

func TestNewDatabase_FileIsReusable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mindscape.db")

	first, err := NewDatabase(DriverSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Schema creation is idempotent
	second, err := NewDatabase(DriverSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestNewDatabase_UnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	db, err := NewDatabase(DriverSQLite, filepath.Join(blocker, "nested", "test.db"))
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestClose(t *testing.T) {
	// Test closing a valid database
	db, err := NewDatabase(DriverSQLite, ":memory:")
	require.NoError(t, err)
	assert.NoError(t, db.Close())

	// Test closing an already closed database
	assert.Error(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))

	// Test closing a nil database
	var nilDB *Database
	assert.Error(t, nilDB.Close())
	assert.Nil(t, nilDB.DB())
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sqlite unique",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want: true,
		},
		{
			name: "sqlite foreign key",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			want: false,
		},
		{
			name: "postgres unique",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "postgres not null",
			err:  &pgconn.PgError{Code: "23502"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
