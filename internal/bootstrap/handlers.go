package bootstrap

import (
	"github.com/aqeluk/THYNKAPI/internal/handlers"
	"github.com/aqeluk/THYNKAPI/internal/middleware"
	"github.com/aqeluk/THYNKAPI/internal/services"
)

// handlerSet holds the HTTP handlers and the resolver protected routes use
type handlerSet struct {
	auth     *handlers.AuthHandler
	oauth    *handlers.OAuthHandler
	user     *handlers.UserHandler
	resolver middleware.IdentityResolver
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	authService *services.AuthService,
	identityService *services.IdentityService,
) handlerSet {
	return handlerSet{
		auth:     handlers.NewAuthHandler(authService),
		oauth:    handlers.NewOAuthHandler(authService),
		user:     handlers.NewUserHandler(identityService),
		resolver: authService,
	}
}
