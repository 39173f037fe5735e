// Package entries provides the PostgreSQL-backed entry store. Whole-account
// entry sets are read through a Redis snapshot cache keyed by account ID;
// writes go straight to the backing store and leave snapshot refresh to the
// caller.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/dbx"
	"github.com/dmitrijs2005/simplepm/internal/server/cache"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
)

// PostgresRepository implements entry storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db    dbx.DBTX
	cache *cache.Cache
	ttl   time.Duration
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, c *cache.Cache, ttl time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, cache: c, ttl: ttl}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO entries (id, account_id, version, name, url, login, password)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.AccountID, e.Version, e.Name, e.URL, e.Login, e.Password)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `
		UPDATE entries
		SET version = $3, name = $4, url = $5, login = $6, password = $7
		WHERE id = $1 AND account_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.AccountID, e.Version, e.Name, e.URL, e.Login, e.Password)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return exactlyOne(res)
}

// RetrieveAll returns the full entry set of an account keyed by entry ID.
// A cache miss triggers a backing-store read, a snapshot write, and a
// re-read through the cache; an account with zero entries yields an empty
// (non-nil) map.
func (r *PostgresRepository) RetrieveAll(ctx context.Context, accountID string) (map[string]models.Entry, error) {
	cached := map[string]models.Entry{}
	err := r.cache.Newest(ctx, accountID, &cached)
	if err == nil {
		return cached, nil
	}
	fresh, err := r.selectAll(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.PutSnapshot(ctx, accountID, fresh, r.ttl); err != nil {
		return fresh, nil
	}
	reread := map[string]models.Entry{}
	if err := r.cache.Newest(ctx, accountID, &reread); err != nil {
		return fresh, nil
	}
	return reread, nil
}

// RetrieveByID resolves a single entry regardless of owner, straight from
// the backing store; snapshots are keyed by account, so there is no cache
// to consult for a bare ID. A missing ID fails ErrorNotFound.
func (r *PostgresRepository) RetrieveByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `
		SELECT id, account_id, version, name, url, login, password
		FROM entries
		WHERE id = $1
	`
	var item models.Entry
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.AccountID, &item.Version, &item.Name, &item.URL, &item.Login, &item.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entry: %w", err)
	}
	return &item, nil
}

// Refresh rewrites the snapshot for accountID from the backing store.
func (r *PostgresRepository) Refresh(ctx context.Context, accountID string) error {
	fresh, err := r.selectAll(ctx, accountID)
	if err != nil {
		return err
	}
	return r.cache.PutSnapshot(ctx, accountID, fresh, r.ttl)
}

// Drop removes every cached snapshot for accountID.
func (r *PostgresRepository) Drop(ctx context.Context, accountID string) error {
	return r.cache.Invalidate(ctx, accountID)
}

// DeleteAllForAccount removes every entry owned by accountID. Zero affected
// rows is fine (the account may own no entries).
func (r *PostgresRepository) DeleteAllForAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) selectAll(ctx context.Context, accountID string) (map[string]models.Entry, error) {
	query := `
		SELECT id, account_id, version, name, url, login, password
		FROM entries
		WHERE account_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	result := map[string]models.Entry{}
	for rows.Next() {
		var item models.Entry
		if err := rows.Scan(
			&item.ID, &item.AccountID, &item.Version, &item.Name, &item.URL, &item.Login, &item.Password,
		); err != nil {
			return nil, err
		}
		result[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
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
