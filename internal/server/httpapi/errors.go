package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/dmitrijs2005/simplepm/internal/logging"
)

// writeError maps a service error to its client-visible category. Parameter
// tags on the error pick the failing argument, so an unknown login reads as
// 404 while a wrong password reads as 401; the message never echoes internal
// detail beyond the category.
func writeError(c *gin.Context, logger logging.Logger, err error) {
	param, _ := common.ParamOf(err)

	switch {
	case errors.Is(err, common.ErrInvalidCiphertext),
		errors.Is(err, common.ErrCryptoFailure),
		errors.Is(err, common.ErrInvalidKey),
		errors.Is(err, common.ErrDecodingError):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEncryptionRequired})

	case errors.Is(err, common.ErrorNotFound):
		c.Status(http.StatusNotFound)

	case errors.Is(err, common.ErrorUnauthorized):
		c.Header("WWW-Authenticate", wwwAuthenticate)
		subject := "password"
		if param == common.ParamMasterPasswordOrCode {
			subject = "master password or operation code"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgIncorrect(subject)})

	case errors.Is(err, common.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": msgLoginOccupied})

	case errors.Is(err, common.ErrorForbidden):
		c.Status(http.StatusForbidden)

	default:
		logger.Error(c.Request.Context(), "request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
	}
}
