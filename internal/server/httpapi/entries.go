package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/simplepm/internal/logging"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
)

// EntryOperations is the slice of the entries service the transport layer
// needs: the three phases of the sync protocol.
type EntryOperations interface {
	GetChecklist(ctx context.Context, accountID string) ([]models.ChecklistItem, error)
	GetUpdateList(ctx context.Context, accountID string, idList []string) ([]models.Entry, error)
	TryCommitChanges(ctx context.Context, accountID string, changes []models.EntryChange) (bool, error)
}

// EntriesHandler serves the sync endpoints. The owning account ID travels in
// the accountID header on every call.
type EntriesHandler struct {
	Entries EntryOperations
	Logger  logging.Logger
}

func (h *EntriesHandler) Checklist(c *gin.Context) {
	accountID, ok := requireHeader(c, "accountID", "account identificator")
	if !ok {
		return
	}
	checklist, err := h.Entries.GetChecklist(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, checklist)
}

func (h *EntriesHandler) UpdateList(c *gin.Context) {
	accountID, ok := requireHeader(c, "accountID", "account identificator")
	if !ok {
		return
	}
	idList := c.Request.Header.Values("idList")
	entries, err := h.Entries.GetUpdateList(c.Request.Context(), accountID, idList)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *EntriesHandler) Commit(c *gin.Context) {
	accountID, ok := requireHeader(c, "accountID", "account identificator")
	if !ok {
		return
	}
	var changes []models.EntryChange
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgCorruptedOrMissing("list of entry changes")})
		return
	}
	complete, err := h.Entries.TryCommitChanges(c.Request.Context(), accountID, changes)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if !complete {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msgPartialCommit})
		return
	}
	c.Status(http.StatusNoContent)
}
