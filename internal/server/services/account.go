// Package services contains server-side business logic. This file implements
// AccountService, the state machine over the account lifecycle: registration,
// authentication, password rotation, deletion, and the master-password
// sub-flow with its two-phase reset protocol.
//
// Every inbound credential field arrives encrypted under the process-wide
// public key and is decrypted before comparison or storage; secrets returned
// to a client are re-encrypted under a client-supplied public key.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/cryptox"
	"github.com/dmitrijs2005/simplepm/internal/dbx"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/repomanager"
)

// Registration carries the encrypted fields of a new account submission.
type Registration struct {
	Login          string
	Password       string
	MasterPassword string
}

// AccountService provides account-lifecycle operations over the account
// store, using the process key pair to decrypt inbound credential fields.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	keys        *cryptox.KeyPair
}

// NewAccountService constructs an AccountService using repositories and the
// process-wide key pair.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, keys *cryptox.KeyPair) *AccountService {
	return &AccountService{db: db, repomanager: m, keys: keys}
}

// IsLoginAvailable reports whether no account exists with the decrypted login.
func (s *AccountService) IsLoginAvailable(ctx context.Context, encryptedLogin string) (bool, error) {
	login, err := s.keys.Decrypt(encryptedLogin)
	if err != nil {
		return false, common.NewParamError(common.ParamUsername, err)
	}
	repo := s.repomanager.Accounts(s.db)
	_, err = repo.RetrieveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Authenticate verifies the decrypted login/password pair and returns the
// master-password envelope, never the account password. An unknown login
// fails NotFound tagged to the username; a wrong password fails Unauthorized
// tagged to the account password.
func (s *AccountService) Authenticate(ctx context.Context, encryptedLogin, encryptedPassword string) (*models.MasterEnvelope, error) {
	acc, err := s.verifyCredentials(ctx, encryptedLogin, encryptedPassword)
	if err != nil {
		return nil, err
	}
	return masterEnvelope(acc), nil
}

// Register decrypts all fields of the submission, assigns a fresh account
// ID, hashes both credentials with fresh salts, and persists the record.
func (s *AccountService) Register(ctx context.Context, reg *Registration) (string, error) {
	login, err := s.keys.Decrypt(reg.Login)
	if err != nil {
		return "", common.NewParamError(common.ParamUsername, err)
	}
	password, err := s.keys.Decrypt(reg.Password)
	if err != nil {
		return "", common.NewParamError(common.ParamAccountPassword, err)
	}
	masterPassword, err := s.keys.Decrypt(reg.MasterPassword)
	if err != nil {
		return "", common.NewParamError(common.ParamMasterPasswordOrCode, err)
	}

	passwordHash, passwordSalt, err := hashWithFreshSalt(password)
	if err != nil {
		return "", err
	}
	masterHash, masterSalt, err := hashWithFreshSalt(masterPassword)
	if err != nil {
		return "", err
	}

	acc := &models.Account{
		ID:           cryptox.NewID(),
		Login:        login,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
		Master: models.MasterCredential{
			Kind: models.MasterHashed,
			Hash: masterHash,
			Salt: masterSalt,
		},
	}
	repo := s.repomanager.Accounts(s.db)
	if err := repo.Create(ctx, acc); err != nil {
		return "", fmt.Errorf("error creating account: %w", err)
	}
	return acc.ID, nil
}

// UpdateAccountCredentials re-verifies current credentials once and applies
// the requested changes in a single store write, so a rejected rename can
// never leave a changed password behind (or vice versa). An empty ciphertext
// leaves that field unchanged. On a rename the cache snapshot moves with the
// login: the old key is dropped and the new one written; a failed cache
// operation after a successful store write surfaces as ErrCacheInconsistency
// so callers know reads may be briefly stale.
func (s *AccountService) UpdateAccountCredentials(ctx context.Context, encryptedCurrentLogin, encryptedCurrentPassword, encryptedNewLogin, encryptedNewPassword string) error {
	var newLogin, newPassword string
	var err error
	if encryptedNewLogin != "" {
		newLogin, err = s.keys.Decrypt(encryptedNewLogin)
		if err != nil {
			return common.NewParamError(common.ParamNewUsername, err)
		}
	}
	if encryptedNewPassword != "" {
		newPassword, err = s.keys.Decrypt(encryptedNewPassword)
		if err != nil {
			return common.NewParamError(common.ParamNewAccountPassword, err)
		}
	}

	acc, err := s.verifyCredentials(ctx, encryptedCurrentLogin, encryptedCurrentPassword)
	if err != nil {
		return err
	}

	oldLogin := acc.Login
	if newPassword != "" {
		acc.PasswordHash, acc.PasswordSalt, err = hashWithFreshSalt(newPassword)
		if err != nil {
			return err
		}
	}
	if newLogin != "" {
		acc.Login = newLogin
	}

	repo := s.repomanager.Accounts(s.db)
	if err := repo.Update(ctx, acc); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return common.NewParamError(common.ParamNewUsername, err)
		}
		return fmt.Errorf("error updating account: %w", err)
	}
	if acc.Login != oldLogin {
		if err := repo.Drop(ctx, oldLogin); err != nil {
			return fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
		}
	}
	if err := repo.Refresh(ctx, acc.Login); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	return nil
}

// UpdateAccountPassword rotates the account password, leaving the login as is.
func (s *AccountService) UpdateAccountPassword(ctx context.Context, encryptedCurrentLogin, encryptedCurrentPassword, encryptedNewPassword string) error {
	return s.UpdateAccountCredentials(ctx, encryptedCurrentLogin, encryptedCurrentPassword, "", encryptedNewPassword)
}

// UpdateAccountLogin renames the account, leaving the password as is.
func (s *AccountService) UpdateAccountLogin(ctx context.Context, encryptedCurrentLogin, encryptedCurrentPassword, encryptedNewLogin string) error {
	return s.UpdateAccountCredentials(ctx, encryptedCurrentLogin, encryptedCurrentPassword, encryptedNewLogin, "")
}

// DeleteAccount verifies credentials and removes the account together with
// all owned entries in one transaction, then drops both cache snapshots.
func (s *AccountService) DeleteAccount(ctx context.Context, encryptedLogin, encryptedPassword string) error {
	acc, err := s.verifyCredentials(ctx, encryptedLogin, encryptedPassword)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Entries(tx).DeleteAllForAccount(ctx, acc.ID); err != nil {
			return err
		}
		return s.repomanager.Accounts(tx).Delete(ctx, acc.ID)
	})
	if err != nil {
		return fmt.Errorf("error deleting account: %w", err)
	}

	if err := s.repomanager.Accounts(s.db).Drop(ctx, acc.Login); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	if err := s.repomanager.Entries(s.db).Drop(ctx, acc.ID); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	return nil
}

// RetrieveMasterPassword returns the master envelope for a login without a
// password check; the caller is expected to gate it behind authentication.
// While a reset is pending the envelope is withheld so the one-time code
// cannot leak through an unauthenticated read.
func (s *AccountService) RetrieveMasterPassword(ctx context.Context, encryptedLogin string) (*models.MasterEnvelope, error) {
	login, err := s.keys.Decrypt(encryptedLogin)
	if err != nil {
		return nil, common.NewParamError(common.ParamUsername, err)
	}
	repo := s.repomanager.Accounts(s.db)
	acc, err := repo.RetrieveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewParamError(common.ParamUsername, common.ErrorNotFound)
		}
		return nil, err
	}
	if acc.Master.Kind == models.MasterPendingReset {
		return nil, fmt.Errorf("master password reset pending: %w", common.ErrorUnauthorized)
	}
	return masterEnvelope(acc), nil
}

// ResetMasterPassword verifies the account password, replaces the stored
// master credential with a fresh one-time operation code, and returns the
// code encrypted under the client's public key. The code stays valid until
// the next successful SetNewMasterPassword consumes it.
func (s *AccountService) ResetMasterPassword(ctx context.Context, encryptedLogin, encryptedPassword, clientPublicKey string) (string, error) {
	acc, err := s.verifyCredentials(ctx, encryptedLogin, encryptedPassword)
	if err != nil {
		return "", err
	}

	code := cryptox.NewID()
	encryptedCode, err := cryptox.Encrypt(code, clientPublicKey)
	if err != nil {
		return "", common.NewParamError(common.ParamRSAPublicKey, err)
	}

	acc.Master = models.MasterCredential{
		Kind:     models.MasterPendingReset,
		Code:     code,
		IssuedAt: time.Now(),
	}
	repo := s.repomanager.Accounts(s.db)
	if err := repo.Update(ctx, acc); err != nil {
		return "", fmt.Errorf("error updating account: %w", err)
	}
	if err := repo.Refresh(ctx, acc.Login); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	return encryptedCode, nil
}

// SetNewMasterPassword rotates the master password. The supplied credential
// is checked against whatever the slot holds: the salted hash of the current
// master password in the ordinary rotation path, or the pending one-time
// code in the reset path. On success the slot always ends up hashed, which
// is what makes reset codes single-use.
func (s *AccountService) SetNewMasterPassword(ctx context.Context, encryptedLogin, encryptedCurrentOrCode, encryptedNewMaster string) (*models.MasterEnvelope, error) {
	login, err := s.keys.Decrypt(encryptedLogin)
	if err != nil {
		return nil, common.NewParamError(common.ParamUsername, err)
	}
	candidate, err := s.keys.Decrypt(encryptedCurrentOrCode)
	if err != nil {
		return nil, common.NewParamError(common.ParamMasterPasswordOrCode, err)
	}
	newMaster, err := s.keys.Decrypt(encryptedNewMaster)
	if err != nil {
		return nil, common.NewParamError(common.ParamNewMasterPassword, err)
	}

	repo := s.repomanager.Accounts(s.db)
	acc, err := repo.RetrieveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewParamError(common.ParamUsername, common.ErrorNotFound)
		}
		return nil, err
	}

	var match bool
	switch acc.Master.Kind {
	case models.MasterPendingReset:
		match = constantTimeEqual(acc.Master.Code, candidate)
	default:
		match = constantTimeEqual(acc.Master.Hash, cryptox.SaltAndHash(candidate, acc.Master.Salt))
	}
	if !match {
		return nil, common.NewParamError(common.ParamMasterPasswordOrCode, common.ErrorUnauthorized)
	}

	hash, salt, err := hashWithFreshSalt(newMaster)
	if err != nil {
		return nil, err
	}
	acc.Master = models.MasterCredential{Kind: models.MasterHashed, Hash: hash, Salt: salt}
	if err := repo.Update(ctx, acc); err != nil {
		return nil, fmt.Errorf("error updating account: %w", err)
	}
	if err := repo.Refresh(ctx, acc.Login); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCacheInconsistency, err)
	}
	return masterEnvelope(acc), nil
}

// --- helpers below ---

// verifyCredentials decrypts the pair, resolves the account by login, and
// checks the salted password hash.
func (s *AccountService) verifyCredentials(ctx context.Context, encryptedLogin, encryptedPassword string) (*models.Account, error) {
	login, err := s.keys.Decrypt(encryptedLogin)
	if err != nil {
		return nil, common.NewParamError(common.ParamUsername, err)
	}
	password, err := s.keys.Decrypt(encryptedPassword)
	if err != nil {
		return nil, common.NewParamError(common.ParamAccountPassword, err)
	}

	repo := s.repomanager.Accounts(s.db)
	acc, err := repo.RetrieveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewParamError(common.ParamUsername, common.ErrorNotFound)
		}
		return nil, err
	}
	if !constantTimeEqual(acc.PasswordHash, cryptox.SaltAndHash(password, acc.PasswordSalt)) {
		return nil, common.NewParamError(common.ParamAccountPassword, common.ErrorUnauthorized)
	}
	return acc, nil
}

func hashWithFreshSalt(plain string) (hash, salt string, err error) {
	salt, err = cryptox.GenerateSalt()
	if err != nil {
		return "", "", err
	}
	return cryptox.SaltAndHash(plain, salt), salt, nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func masterEnvelope(acc *models.Account) *models.MasterEnvelope {
	return &models.MasterEnvelope{
		AccountID:          acc.ID,
		MasterPasswordHash: acc.Master.Hash,
		MasterSalt:         acc.Master.Salt,
	}
}
