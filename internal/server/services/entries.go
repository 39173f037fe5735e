package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/logging"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/repomanager"
)

// EntriesService implements the three-phase sync protocol: checklist,
// update-list, commit. The service keeps no state between calls; the
// update-list phase re-resolves entries through the read-through cache, so
// one instance is safe to share across concurrent requests.
type EntriesService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewEntriesService constructs an EntriesService.
func NewEntriesService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *EntriesService {
	return &EntriesService{db: db, repomanager: m, logger: logger}
}

// GetChecklist returns (ID, version) pairs for every entry owned by the
// account, ordered by display name, so the client can diff against its
// local version table without transferring entry bodies. An unknown account
// fails NotFound tagged to the account identificator.
func (s *EntriesService) GetChecklist(ctx context.Context, accountID string) ([]models.ChecklistItem, error) {
	ok, err := s.repomanager.Accounts(s.db).Exists(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error resolving account: %w", err)
	}
	if !ok {
		return nil, common.NewParamError(common.ParamAccountID, common.ErrorNotFound)
	}

	all, err := s.repomanager.Entries(s.db).RetrieveAll(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries: %w", err)
	}

	list := make([]models.Entry, 0, len(all))
	for _, e := range all {
		list = append(list, e)
	}
	// names are not unique; the ID tiebreak keeps the order deterministic
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})

	checklist := make([]models.ChecklistItem, 0, len(list))
	for _, e := range list {
		checklist = append(checklist, models.ChecklistItem{ID: e.ID, Version: e.Version})
	}
	return checklist, nil
}

// GetUpdateList returns the full bodies of the requested entries. An ID
// that no longer exists at all is skipped as already deleted, but an ID
// that resolves to another account's entry fails Forbidden: the two cases
// must not be conflated, or a sync client could silently prune foreign IDs
// instead of being told it crossed an ownership boundary.
func (s *EntriesService) GetUpdateList(ctx context.Context, accountID string, idList []string) ([]models.Entry, error) {
	repo := s.repomanager.Entries(s.db)
	all, err := repo.RetrieveAll(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries: %w", err)
	}

	updatelist := make([]models.Entry, 0, len(idList))
	for _, id := range idList {
		if e, ok := all[id]; ok {
			updatelist = append(updatelist, e)
			continue
		}
		// not in the account's snapshot: deleted, or owned by someone else
		e, err := repo.RetrieveByID(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error resolving entry: %w", err)
		}
		if e.AccountID != accountID {
			return nil, common.NewParamError(common.ParamAccountID, common.ErrorForbidden)
		}
		updatelist = append(updatelist, *e)
	}
	return updatelist, nil
}

// TryCommitChanges applies the submitted change set. Each operation must
// affect exactly one backing-store row; an operation that does not is
// counted as a partial failure without aborting the rest of the batch.
// After the full list is processed the cache snapshot is refreshed
// unconditionally, because even a partial batch has changed ground truth.
// Returns true only if every operation succeeded.
func (s *EntriesService) TryCommitChanges(ctx context.Context, accountID string, changes []models.EntryChange) (bool, error) {
	if len(changes) == 0 {
		return true, nil
	}

	repo := s.repomanager.Entries(s.db)
	complete := true
	for _, change := range changes {
		entry := change.Entry
		entry.AccountID = accountID

		var err error
		switch change.Operation {
		case models.SyncCreate:
			err = repo.Create(ctx, &entry)
		case models.SyncUpdate:
			err = repo.Update(ctx, &entry)
		case models.SyncDelete:
			err = repo.Delete(ctx, entry.ID, accountID)
		default:
			err = fmt.Errorf("unknown sync operation %q", change.Operation)
		}
		if err != nil {
			complete = false
			s.logger.Warn(ctx, "sync operation failed",
				"operation", string(change.Operation), "entry_id", entry.ID, "error", err.Error())
		}
	}

	if err := repo.Refresh(ctx, accountID); err != nil {
		return complete, fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	return complete, nil
}
