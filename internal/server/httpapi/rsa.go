package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/simplepm/internal/cryptox"
)

// KeysHandler publishes the process key pair's public half. Clients must
// re-fetch whenever the key epoch changes; a restarted server cannot decrypt
// payloads produced against an earlier epoch.
type KeysHandler struct {
	Keys *cryptox.KeyPair
}

func (h *KeysHandler) PublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"keyEpoch":  h.Keys.Epoch(),
		"publicKey": h.Keys.PublicKey(),
		"createdAt": h.Keys.CreatedAt().UTC().Format(time.RFC3339),
	})
}

func (h *KeysHandler) Test(c *gin.Context) {
	c.Status(http.StatusOK)
}
