package accounts

import (
	"context"

	"github.com/dmitrijs2005/simplepm/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, acc *models.Account) error
	RetrieveByLogin(ctx context.Context, login string) (*models.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, acc *models.Account) error
	Delete(ctx context.Context, id string) error

	// Refresh rewrites the cache snapshot for login from the backing store.
	Refresh(ctx context.Context, login string) error
	// Drop removes every cache snapshot for login.
	Drop(ctx context.Context, login string) error
}
