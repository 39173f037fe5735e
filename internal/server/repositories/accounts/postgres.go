// Package accounts provides the PostgreSQL-backed account store with a
// Redis read-through snapshot cache in front of lookups by login.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/dbx"
	"github.com/dmitrijs2005/simplepm/internal/server/cache"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX
// (*sql.DB or *sql.Tx) plus a snapshot cache keyed by login.
type PostgresRepository struct {
	db    dbx.DBTX
	cache *cache.Cache
	ttl   time.Duration
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, c *cache.Cache, ttl time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, cache: c, ttl: ttl}
}

// Create inserts a new account row. Exactly one affected row is required;
// any other count is reported as ErrStoreInconsistency.
func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) error {
	query := `
		INSERT INTO accounts (id, login, password_hash, password_salt, master_kind, master_hash, master_salt, master_code, master_issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	res, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.Login, acc.PasswordHash, acc.PasswordSalt,
		string(acc.Master.Kind), acc.Master.Hash, acc.Master.Salt, acc.Master.Code, nullTime(acc.Master.IssuedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("login %q: %w", acc.Login, common.ErrorConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

// RetrieveByLogin resolves an account through the cache. On a miss it reads
// the backing store, writes a fresh snapshot and re-reads the cache so the
// value passes through the same serialization path as warm reads.
func (r *PostgresRepository) RetrieveByLogin(ctx context.Context, login string) (*models.Account, error) {
	acc := &models.Account{}
	err := r.cache.Newest(ctx, login, acc)
	if err == nil {
		return acc, nil
	}
	// degraded cache falls through to the backing store as well
	fresh, err := r.selectByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := r.cache.PutSnapshot(ctx, login, fresh, r.ttl); err != nil {
		return fresh, nil
	}
	reread := &models.Account{}
	if err := r.cache.Newest(ctx, login, reread); err != nil {
		return fresh, nil
	}
	return reread, nil
}

// Exists reports whether an account row with the given ID is present.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = $1`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// Update overwrites the account row by ID.
func (r *PostgresRepository) Update(ctx context.Context, acc *models.Account) error {
	query := `
		UPDATE accounts
		SET login = $2, password_hash = $3, password_salt = $4,
			master_kind = $5, master_hash = $6, master_salt = $7, master_code = $8, master_issued_at = $9
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.Login, acc.PasswordHash, acc.PasswordSalt,
		string(acc.Master.Kind), acc.Master.Hash, acc.Master.Salt, acc.Master.Code, nullTime(acc.Master.IssuedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("login %q: %w", acc.Login, common.ErrorConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

// Delete removes the account row; owned entries go with it via the FK
// cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

// Refresh repopulates the snapshot for login from the backing store.
func (r *PostgresRepository) Refresh(ctx context.Context, login string) error {
	fresh, err := r.selectByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return r.cache.Invalidate(ctx, login)
		}
		return err
	}
	return r.cache.PutSnapshot(ctx, login, fresh, r.ttl)
}

// Drop removes every cached snapshot for login.
func (r *PostgresRepository) Drop(ctx context.Context, login string) error {
	return r.cache.Invalidate(ctx, login)
}

func (r *PostgresRepository) selectByLogin(ctx context.Context, login string) (*models.Account, error) {
	query := `
		SELECT id, login, password_hash, password_salt, master_kind, master_hash, master_salt, master_code, master_issued_at
		FROM accounts
		WHERE login = $1
	`
	acc := &models.Account{}
	var kind string
	var issuedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, login).Scan(
		&acc.ID, &acc.Login, &acc.PasswordHash, &acc.PasswordSalt,
		&kind, &acc.Master.Hash, &acc.Master.Salt, &acc.Master.Code, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	acc.Master.Kind = models.MasterKind(kind)
	if issuedAt.Valid {
		acc.Master.IssuedAt = issuedAt.Time
	}
	return acc, nil
}

func exactlyOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %d", common.ErrStoreInconsistency, n)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
