// Package server initializes and runs the main application server.
// It opens the backing stores, runs migrations, generates the process key
// pair, handles graceful shutdown, and starts the HTTP server for the
// account and entry-sync API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/simplepm/internal/cryptox"
	"github.com/dmitrijs2005/simplepm/internal/logging"
	"github.com/dmitrijs2005/simplepm/internal/server/cache"
	"github.com/dmitrijs2005/simplepm/internal/server/config"
	"github.com/dmitrijs2005/simplepm/internal/server/httpapi"
	"github.com/dmitrijs2005/simplepm/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/simplepm/internal/server/services"
)

// Redis database numbers for the two snapshot caches.
const (
	accountCacheDB = 0
	entryCacheDB   = 1
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	accountCache   *cache.Cache
	entryCache     *cache.Cache
	keys           *cryptox.KeyPair
	accountService *services.AccountService
	entriesService *services.EntriesService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	accountCache := cache.New(c.RedisAddr, c.RedisPassword, accountCacheDB)
	entryCache := cache.New(c.RedisAddr, c.RedisPassword, entryCacheDB)

	rm := repomanager.NewPostgresRepositoryManager(accountCache, entryCache, c.AccountCacheTTL, c.EntryCacheTTL)
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	// process-lifetime key pair; the epoch published with the public key
	// lets clients detect a restart
	keys, err := cryptox.GenerateKeyPair(c.RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("key generation error: %w", err)
	}

	as := services.NewAccountService(db, rm, keys)
	es := services.NewEntriesService(db, rm, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		accountCache:   accountCache,
		entryCache:     entryCache,
		keys:           keys,
		accountService: as,
		entriesService: es,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	router := httpapi.NewRouter(httpapi.Deps{
		Accounts: app.accountService,
		Entries:  app.entriesService,
		Keys:     app.keys,
		Logger:   app.logger,
	})

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http server shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddrHTTP, "key_epoch", app.keys.Epoch())

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	if err := app.accountCache.Close(); err != nil {
		app.logger.Error(ctx, "account cache close error", "error", err.Error())
	}
	if err := app.entryCache.Close(); err != nil {
		app.logger.Error(ctx, "entry cache close error", "error", err.Error())
	}
}
