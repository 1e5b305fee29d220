package bootstrap

import (
	"fmt"
	"log"

	"github.com/aqeluk/THYNKAPI/internal/auth"
	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/services"
	"github.com/aqeluk/THYNKAPI/internal/store"
	"github.com/aqeluk/THYNKAPI/internal/token"
)

// initializeAuthComponents creates the password hasher and the token provider
func initializeAuthComponents(cfg *config.Config) (*auth.PasswordHasher, core.TokenProvider, error) {
	hasher, err := auth.NewPasswordHasher(cfg.PasswordHashAlgorithm, cfg.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create password hasher: %w", err)
	}
	tokens := token.NewLocalTokenProvider(cfg)
	log.Printf("Password hashing: %s, token signing: %s", hasher.Name(), cfg.JWTAlgorithm)
	return hasher, tokens, nil
}

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	hasher *auth.PasswordHasher,
	tokens core.TokenProvider,
	registry *auth.Registry,
	identityCache core.Cache[models.Identity],
	recorder core.Recorder,
) (*services.IdentityService, *services.AuthService) {
	identityService := services.NewIdentityService(
		db,
		hasher,
		tokens,
		services.LogNotifier{},
		identityCache,
		cfg.IdentityCacheTTL,
		cfg.EmailVerificationTTL,
		cfg.PasswordResetTTL,
		cfg.BaseURL,
		recorder,
	)
	authService := services.NewAuthService(
		db,
		hasher,
		tokens,
		registry,
		identityService,
		recorder,
		cfg.OAuthSignInExistingEmail,
	)
	return identityService, authService
}
