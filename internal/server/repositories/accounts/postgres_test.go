package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/server/cache"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
	"github.com/redis/go-redis/v9"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	s := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return NewPostgresRepository(db, c, time.Minute), mock, db
}

func testAccount() *models.Account {
	return &models.Account{
		ID:           "a-1",
		Login:        "alice",
		PasswordHash: "hash",
		PasswordSalt: "salt",
		Master: models.MasterCredential{
			Kind: models.MasterHashed,
			Hash: "mhash",
			Salt: "msalt",
		},
	}
}

const selectQ = `(?s)SELECT\s+id,\s*login,\s*password_hash,\s*password_salt,\s*master_kind,\s*master_hash,\s*master_salt,\s*master_code,\s*master_issued_at\s+FROM\s+accounts\s+WHERE\s+login\s*=\s*\$1`

func accountRows(acc *models.Account) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "login", "password_hash", "password_salt",
		"master_kind", "master_hash", "master_salt", "master_code", "master_issued_at",
	}).AddRow(acc.ID, acc.Login, acc.PasswordHash, acc.PasswordSalt,
		string(acc.Master.Kind), acc.Master.Hash, acc.Master.Salt, acc.Master.Code, nil)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+accounts`).
		WithArgs("a-1", "alice", "hash", "salt", "hashed", "mhash", "msalt", "", sql.NullTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), testAccount()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_UnexpectedRowCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+accounts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), testAccount())
	if !errors.Is(err, common.ErrStoreInconsistency) {
		t.Fatalf("want ErrStoreInconsistency, got %v", err)
	}
}

func TestRetrieveByLogin_ColdReadPopulatesCache(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// only one backing-store read is expected for two retrievals
	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnRows(accountRows(testAccount()))

	got, err := repo.RetrieveByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("cold read error: %v", err)
	}
	if got.ID != "a-1" || got.Master.Kind != models.MasterHashed {
		t.Fatalf("unexpected account: %+v", got)
	}

	got, err = repo.RetrieveByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("warm read error: %v", err)
	}
	if got.Login != "alice" || got.Master.Hash != "mhash" {
		t.Fatalf("unexpected cached account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRetrieveByLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.RetrieveByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+1\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(q).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), "a-1")
	if err != nil || !ok {
		t.Fatalf("want exists, got ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("want not exists, got ok=%v err=%v", ok, err)
	}
}

func TestUpdate_UnexpectedRowCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+accounts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), testAccount())
	if !errors.Is(err, common.ErrStoreInconsistency) {
		t.Fatalf("want ErrStoreInconsistency, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "a-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestRefresh_RewritesSnapshot(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// stale snapshot first
	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnRows(accountRows(testAccount()))
	if _, err := repo.RetrieveByLogin(context.Background(), "alice"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	updated := testAccount()
	updated.PasswordHash = "newhash"
	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnRows(accountRows(updated))

	if err := repo.Refresh(context.Background(), "alice"); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	// warm read must see the refreshed snapshot without another SQL query
	got, err := repo.RetrieveByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("warm read error: %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Fatalf("stale snapshot after refresh: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRefresh_GoneRowInvalidates(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnRows(accountRows(testAccount()))
	if _, err := repo.RetrieveByLogin(context.Background(), "alice"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnError(sql.ErrNoRows)
	if err := repo.Refresh(context.Background(), "alice"); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	// next read must go to the store again
	mock.ExpectQuery(selectQ).WithArgs("alice").WillReturnError(sql.ErrNoRows)
	_, err := repo.RetrieveByLogin(context.Background(), "alice")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound after invalidation, got %v", err)
	}
}
