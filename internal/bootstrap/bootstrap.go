package bootstrap

import (
	"context"
	"net/http"

	"github.com/aqeluk/THYNKAPI/internal/auth"
	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/services"
	"github.com/aqeluk/THYNKAPI/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                  *store.Store
	MetricsRecorder     core.Recorder
	IdentityCache       core.Cache[models.Identity]
	IdentityCacheCloser func() error

	// Auth components
	Hasher   *auth.PasswordHasher
	Tokens   core.TokenProvider
	Registry *auth.Registry

	// Services
	IdentityService *services.IdentityService
	AuthService     *services.AuthService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := validateConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(context.Background()); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics and the identity cache
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config)

	app.IdentityCache, app.IdentityCacheCloser, err = initializeIdentityCache(ctx, app.Config)
	if err != nil {
		app.closeInfrastructure()
		return err
	}

	return nil
}

// initializeBusinessLayer sets up auth components and services
func (app *Application) initializeBusinessLayer() error {
	var err error

	app.Hasher, app.Tokens, err = initializeAuthComponents(app.Config)
	if err != nil {
		return err
	}

	oauthHTTPClient, err := createOAuthHTTPClient(app.Config)
	if err != nil {
		return err
	}
	app.Registry, err = initializeOAuthProviders(app.Config, oauthHTTPClient)
	if err != nil {
		return err
	}
	logOAuthProvidersStatus(app.Registry)

	app.IdentityService, app.AuthService = initializeServices(
		app.Config,
		app.DB,
		app.Hasher,
		app.Tokens,
		app.Registry,
		app.IdentityCache,
		app.MetricsRecorder,
	)
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(app.AuthService, app.IdentityService)
	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.IdentityCache,
		app.HandlerSet,
		app.MetricsRecorder,
	)
	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Config, app.Server)
	addCacheCleanupJob(m, app.IdentityCacheCloser)
	addDatabaseCloseJob(m, app.Config, app.DB)

	<-m.Done()
}

// closeInfrastructure releases what initializeInfrastructure opened when a
// later phase fails before the graceful manager owns shutdown.
func (app *Application) closeInfrastructure() {
	if app.IdentityCacheCloser != nil {
		_ = app.IdentityCacheCloser()
	}
	if app.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.Config.DBCloseTimeout)
		defer cancel()
		_ = app.DB.Close(ctx)
	}
}
