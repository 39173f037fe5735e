package entries

import (
	"context"

	"github.com/dmitrijs2005/simplepm/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Entry) error
	// Update and Delete are scoped by owning account: a foreign or missing
	// ID affects zero rows and fails exactlyOne.
	Update(ctx context.Context, e *models.Entry) error
	Delete(ctx context.Context, id, accountID string) error

	// RetrieveAll resolves the full entry set of an account through the
	// snapshot cache.
	RetrieveAll(ctx context.Context, accountID string) (map[string]models.Entry, error)
	// RetrieveByID resolves a single entry regardless of owner, straight
	// from the backing store. A missing ID fails ErrorNotFound.
	RetrieveByID(ctx context.Context, id string) (*models.Entry, error)
	// Refresh rewrites the cache snapshot for accountID from the backing store.
	Refresh(ctx context.Context, accountID string) error
	// Drop removes every cache snapshot for accountID.
	Drop(ctx context.Context, accountID string) error

	DeleteAllForAccount(ctx context.Context, accountID string) error
}
