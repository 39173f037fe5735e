// Package httpapi exposes the account and entry-sync services over HTTP.
// Routing and handler layout follow plain gin conventions: one handler
// struct per resource, wired by NewRouter.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/simplepm/internal/cryptox"
	"github.com/dmitrijs2005/simplepm/internal/logging"
)

// Deps carries everything the router needs.
type Deps struct {
	Accounts AccountOperations
	Entries  EntryOperations
	Keys     *cryptox.KeyPair
	Logger   logging.Logger
}

// NewRouter builds the gin engine with all routes mounted under /api/v1.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	keysHandler := &KeysHandler{Keys: deps.Keys}
	v1.GET("/test", keysHandler.Test)
	v1.GET("/rsa", keysHandler.PublicKey)

	accountsHandler := &AccountsHandler{Accounts: deps.Accounts, Logger: deps.Logger}
	v1.GET("/accounts/login/availability", accountsHandler.CheckLoginAvailability)
	v1.GET("/accounts", accountsHandler.Authenticate)
	v1.POST("/accounts", accountsHandler.Register)
	v1.PATCH("/accounts", accountsHandler.Update)
	v1.DELETE("/accounts", accountsHandler.Remove)
	v1.GET("/accounts/master", accountsHandler.GetMasterPassword)
	v1.POST("/accounts/master", accountsHandler.SetMasterPassword)
	v1.DELETE("/accounts/master/reset", accountsHandler.ResetMasterPassword)

	entriesHandler := &EntriesHandler{Entries: deps.Entries, Logger: deps.Logger}
	v1.GET("/entries/sync/checklist", entriesHandler.Checklist)
	v1.GET("/entries/sync/updatelist", entriesHandler.UpdateList)
	v1.POST("/entries/sync", entriesHandler.Commit)

	return r
}
