// Package repomanager provides a concrete RepositoryManager for SQLite,
// wiring together repository constructors and identity store migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/nabzkeeper/internal/dbx"
	"github.com/dmitrijs2005/nabzkeeper/internal/migrations"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/activities"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/users"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations
// and exposes a schema migration hook for the identity store.
type SQLiteRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

// Activities returns an activities.Repository for a partition whose table is
// on generation gen.
func (m *SQLiteRepositoryManager) Activities(db dbx.DBTX, gen models.Generation) activities.Repository {
	return activities.NewSQLiteRepository(db, gen)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the identity store.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}

// OpenIdentityStore opens the identity database file, creating its
// directory if needed.
func OpenIdentityStore(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create identity store directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	return db, nil
}
