// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors, their snapshot caches, and
// database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/simplepm/internal/dbx"
	"github.com/dmitrijs2005/simplepm/internal/server/cache"
	"github.com/dmitrijs2005/simplepm/internal/server/migrations"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/entries"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to a
// DBTX, sharing one snapshot cache per store.
type PostgresRepositoryManager struct {
	accountCache *cache.Cache
	entryCache   *cache.Cache
	accountTTL   time.Duration
	entryTTL     time.Duration
}

// NewPostgresRepositoryManager constructs the manager with per-store caches
// and snapshot TTLs.
func NewPostgresRepositoryManager(accountCache, entryCache *cache.Cache, accountTTL, entryTTL time.Duration) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{
		accountCache: accountCache,
		entryCache:   entryCache,
		accountTTL:   accountTTL,
		entryTTL:     entryTTL,
	}
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db, m.accountCache, m.accountTTL)
}

// Entries returns an entries.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewPostgresRepository(db, m.entryCache, m.entryTTL)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
