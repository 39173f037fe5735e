package models

import "time"

// MasterKind tags which representation the master-credential slot holds.
type MasterKind string

const (
	// MasterHashed: the slot holds a salted hash of the master password.
	MasterHashed MasterKind = "hashed"
	// MasterPendingReset: the slot holds a one-time operation code issued by
	// a reset and not yet consumed.
	MasterPendingReset MasterKind = "pending_reset"
)

// MasterCredential models the master-password slot as an explicit tagged
// union instead of overloading a single string field. Hash/Salt are set when
// Kind is MasterHashed; Code/IssuedAt when Kind is MasterPendingReset.
type MasterCredential struct {
	Kind     MasterKind `json:"kind"`
	Hash     string     `json:"hash,omitempty"`
	Salt     string     `json:"salt,omitempty"`
	Code     string     `json:"code,omitempty"`
	IssuedAt time.Time  `json:"issued_at,omitempty"`
}

// Account is the identity record owning credential entries and the
// master-password envelope. Password and master-password values are never
// stored in clear text.
type Account struct {
	ID           string           `json:"id"`
	Login        string           `json:"login"`
	PasswordHash string           `json:"password_hash"`
	PasswordSalt string           `json:"password_salt"`
	Master       MasterCredential `json:"master"`
}

// MasterEnvelope is what authentication and the master sub-flow return to
// the client: the stored master hash and its salt, never the account
// password.
type MasterEnvelope struct {
	AccountID          string `json:"accountId,omitempty"`
	MasterPasswordHash string `json:"masterPasswordHash"`
	MasterSalt         string `json:"masterSalt"`
}
