package models

// Entry is one stored credential item owned by an account. Field values are
// stored in the client-chosen representation; beyond transport decryption
// the server treats them as opaque.
type Entry struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Version   int64  `json:"version"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Login     string `json:"login"`
	Password  string `json:"password"`
}

// ChecklistItem is the lightweight (ID, version) manifest element clients
// diff against their local version table.
type ChecklistItem struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// SyncOperation describes client intent for one submitted entry. It is
// consumed once per commit call and never persisted.
type SyncOperation string

const (
	SyncCreate SyncOperation = "create"
	SyncUpdate SyncOperation = "update"
	SyncDelete SyncOperation = "delete"
)

// EntryChange pairs a submitted entry with its tagged operation.
type EntryChange struct {
	Operation SyncOperation `json:"operation"`
	Entry     Entry         `json:"entry"`
}
