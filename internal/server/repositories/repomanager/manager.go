package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/simplepm/internal/dbx"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/entries"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Entries(db dbx.DBTX) entries.Repository
}
