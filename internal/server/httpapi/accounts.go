package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/simplepm/internal/logging"
	"github.com/dmitrijs2005/simplepm/internal/server/models"
	"github.com/dmitrijs2005/simplepm/internal/server/services"
)

// AccountOperations is the slice of the account service the transport layer
// needs. Credential-bearing arguments are RSA-encrypted strings.
type AccountOperations interface {
	IsLoginAvailable(ctx context.Context, encryptedLogin string) (bool, error)
	Authenticate(ctx context.Context, encryptedLogin, encryptedPassword string) (*models.MasterEnvelope, error)
	Register(ctx context.Context, reg *services.Registration) (string, error)
	UpdateAccountCredentials(ctx context.Context, encryptedCurrentLogin, encryptedCurrentPassword, encryptedNewLogin, encryptedNewPassword string) error
	DeleteAccount(ctx context.Context, encryptedLogin, encryptedPassword string) error
	RetrieveMasterPassword(ctx context.Context, encryptedLogin string) (*models.MasterEnvelope, error)
	ResetMasterPassword(ctx context.Context, encryptedLogin, encryptedPassword, clientPublicKey string) (string, error)
	SetNewMasterPassword(ctx context.Context, encryptedLogin, encryptedCurrentOrCode, encryptedNewMaster string) (*models.MasterEnvelope, error)
}

// AccountsHandler serves the account lifecycle endpoints. Encrypted
// credential fields travel in request headers; only registration carries a
// JSON body.
type AccountsHandler struct {
	Accounts AccountOperations
	Logger   logging.Logger
}

// requireHeader fetches a header value, writing a 400 on absence.
func requireHeader(c *gin.Context, name, label string) (string, bool) {
	v := c.GetHeader(name)
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgCorruptedOrMissing(label)})
		return "", false
	}
	return v, true
}

// requireCredentialHeader is requireHeader for password-class fields: a
// missing value answers 401 with the WWW-Authenticate hint instead of 400.
func requireCredentialHeader(c *gin.Context, name, label string) (string, bool) {
	v := c.GetHeader(name)
	if v == "" {
		c.Header("WWW-Authenticate", wwwAuthenticate)
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgRequired(label)})
		return "", false
	}
	return v, true
}

func (h *AccountsHandler) CheckLoginAvailability(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedLogin", "username")
	if !ok {
		return
	}
	available, err := h.Accounts.IsLoginAvailable(c.Request.Context(), login)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, available)
}

func (h *AccountsHandler) Authenticate(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedLogin", "username")
	if !ok {
		return
	}
	password, ok := requireCredentialHeader(c, "encryptedPassword", "account password")
	if !ok {
		return
	}
	envelope, err := h.Accounts.Authenticate(c.Request.Context(), login, password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

type registrationBody struct {
	Login          string `json:"login" binding:"required"`
	Password       string `json:"password" binding:"required"`
	MasterPassword string `json:"masterPassword" binding:"required"`
}

func (h *AccountsHandler) Register(c *gin.Context) {
	var body registrationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgCorruptedOrMissing("account model")})
		return
	}
	id, err := h.Accounts.Register(c.Request.Context(), &services.Registration{
		Login:          body.Login,
		Password:       body.Password,
		MasterPassword: body.MasterPassword,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Logger.Info(c.Request.Context(), "account created", "account_id", id)
	c.JSON(http.StatusCreated, gin.H{"accountId": id})
}

func (h *AccountsHandler) Update(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedCurrentLogin", "current login")
	if !ok {
		return
	}
	newLogin := c.GetHeader("encryptedNewLogin")
	newPassword := c.GetHeader("encryptedNewPassword")
	if newLogin == "" && newPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid data have been received. Please verify your entry and try again."})
		return
	}
	password, ok := requireCredentialHeader(c, "encryptedCurrentPassword", "account password")
	if !ok {
		return
	}

	// one service call for both fields: the pair is verified once and
	// written once, so a rejected rename cannot strand a changed password
	if err := h.Accounts.UpdateAccountCredentials(c.Request.Context(), login, password, newLogin, newPassword); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountsHandler) Remove(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedLogin", "username")
	if !ok {
		return
	}
	password, ok := requireCredentialHeader(c, "encryptedPassword", "account password")
	if !ok {
		return
	}
	if err := h.Accounts.DeleteAccount(c.Request.Context(), login, password); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountsHandler) GetMasterPassword(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedLogin", "login")
	if !ok {
		return
	}
	envelope, err := h.Accounts.RetrieveMasterPassword(c.Request.Context(), login)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

func (h *AccountsHandler) SetMasterPassword(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedCurrentLogin", "login")
	if !ok {
		return
	}
	code, ok := requireCredentialHeader(c, "encryptedOperationCode", "operation code")
	if !ok {
		return
	}
	newMaster, ok := requireHeader(c, "encryptedNewMasterPass", "new master password")
	if !ok {
		return
	}
	envelope, err := h.Accounts.SetNewMasterPassword(c.Request.Context(), login, code, newMaster)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, envelope)
}

func (h *AccountsHandler) ResetMasterPassword(c *gin.Context) {
	login, ok := requireHeader(c, "encryptedLogin", "username")
	if !ok {
		return
	}
	clientKey, ok := requireHeader(c, "rsaPublicKey", "RSA public key")
	if !ok {
		return
	}
	password, ok := requireCredentialHeader(c, "encryptedPassword", "account password")
	if !ok {
		return
	}
	code, err := h.Accounts.ResetMasterPassword(c.Request.Context(), login, password, clientKey)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"operationCode": code})
}
