package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/auth"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/store"

	"github.com/google/uuid"
)

const loginMethodPassword = "password"

// External call steps, used in logs and metrics
const (
	stepExchange = "exchange"
	stepProfile  = "profile"
)

// AuthService runs the password and OAuth login flows and resolves bearer tokens.
type AuthService struct {
	store               core.IdentityStore
	hasher              core.PasswordHasher
	tokens              core.TokenProvider
	registry            *auth.Registry
	identities          *IdentityService
	metrics             core.Recorder
	signInExistingEmail bool
	now                 func() time.Time
}

func NewAuthService(
	s core.IdentityStore,
	hasher core.PasswordHasher,
	tokens core.TokenProvider,
	registry *auth.Registry,
	identities *IdentityService,
	m core.Recorder,
	signInExistingEmail bool,
) *AuthService {
	return &AuthService{
		store:               s,
		hasher:              hasher,
		tokens:              tokens,
		registry:            registry,
		identities:          identities,
		metrics:             m,
		signInExistingEmail: signInExistingEmail,
		now:                 time.Now,
	}
}

// LoginWithPassword verifies a username and password and returns an access token.
// The password is never checked when the username is unknown.
func (s *AuthService) LoginWithPassword(
	ctx context.Context,
	username, password string,
) (*core.TokenResult, error) {
	identity, err := s.store.GetIdentityByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			s.metrics.RecordLogin(loginMethodPassword, "username_not_found")
			log.Printf("[Auth] step=lookup username=%s not found", username)
			return nil, ErrUsernameNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_identity_by_username")
		log.Printf("[Auth] Lookup failed for username=%s: %v", username, err)
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	if !identity.HasPassword() || !s.hasher.Verify(password, identity.PasswordHash) {
		s.metrics.RecordLogin(loginMethodPassword, "invalid_credentials")
		log.Printf("[Auth] Invalid credentials for username=%s", username)
		return nil, ErrInvalidCredentials
	}

	result, err := s.completeLogin(ctx, identity)
	if err != nil {
		s.metrics.RecordLogin(loginMethodPassword, "error")
		return nil, err
	}

	s.metrics.RecordLogin(loginMethodPassword, "success")
	log.Printf("[Auth] Password login succeeded for identity=%s", identity.ID)
	return result, nil
}

// AuthorizationURL returns the URL that starts a login at the named provider.
func (s *AuthService) AuthorizationURL(providerKey string) (string, error) {
	provider, ok := s.registry.Get(providerKey)
	if !ok {
		return "", ErrUnknownProvider
	}
	return provider.AuthorizationURL(), nil
}

// ProviderKeys lists the configured provider keys in sorted order.
func (s *AuthService) ProviderKeys() []string {
	return s.registry.Keys()
}

// LoginWithOAuth completes an authorization-code login: it exchanges code, reads
// the profile and signs in the identity that owns the profile email, creating it
// on first use.
func (s *AuthService) LoginWithOAuth(
	ctx context.Context,
	providerKey, code string,
) (*core.TokenResult, error) {
	provider, ok := s.registry.Get(providerKey)
	if !ok {
		s.metrics.RecordOAuthCallback(providerKey, "unknown_provider")
		log.Printf("[OAuth] Callback for unknown provider=%s", providerKey)
		return nil, ErrUnknownProvider
	}
	if code == "" {
		s.metrics.RecordOAuthCallback(providerKey, "missing_code")
		log.Printf("[OAuth] step=callback provider=%s missing authorization code", providerKey)
		return nil, ErrMissingAuthorizationCode
	}

	start := time.Now()
	accessToken, err := provider.ExchangeCode(ctx, code)
	s.metrics.RecordExternalAPICall(providerKey, stepExchange, time.Since(start), err == nil)
	if err != nil {
		s.metrics.RecordOAuthCallback(providerKey, "upstream_failure")
		log.Printf("[OAuth] step=%s provider=%s failed: %v", stepExchange, providerKey, err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstreamFailure, providerKey, stepExchange, err)
	}

	start = time.Now()
	profile, err := provider.FetchProfile(ctx, accessToken)
	s.metrics.RecordExternalAPICall(providerKey, stepProfile, time.Since(start), err == nil)
	if err != nil {
		s.metrics.RecordOAuthCallback(providerKey, "upstream_failure")
		log.Printf("[OAuth] step=%s provider=%s failed: %v", stepProfile, providerKey, err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstreamFailure, providerKey, stepProfile, err)
	}

	identity, result, err := s.signInOAuthIdentity(ctx, providerKey, profile)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			s.metrics.RecordOAuthCallback(providerKey, "duplicate_email")
		case errors.Is(err, ErrIdentityInactive):
			s.metrics.RecordOAuthCallback(providerKey, "inactive")
		default:
			s.metrics.RecordOAuthCallback(providerKey, "error")
		}
		return nil, err
	}

	s.metrics.RecordOAuthCallback(providerKey, "success")
	s.metrics.RecordLogin(providerKey, "success")
	log.Printf("[OAuth] Login succeeded provider=%s identity=%s", providerKey, identity.ID)
	return result, nil
}

// signInOAuthIdentity signs in the identity that owns the profile email,
// creating it when the email is unknown.
func (s *AuthService) signInOAuthIdentity(
	ctx context.Context,
	providerKey string,
	profile *core.ExternalProfile,
) (*models.Identity, *core.TokenResult, error) {
	email := normalizeEmail(profile.Email)

	existing, err := s.store.GetIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		if !s.signInExistingEmail {
			log.Printf("[OAuth] provider=%s email=%s already registered", providerKey, email)
			return nil, nil, ErrDuplicateEmail
		}
		if !existing.IsActive {
			log.Printf("[OAuth] provider=%s identity=%s is disabled", providerKey, existing.ID)
			return nil, nil, ErrIdentityInactive
		}
		result, err := s.completeLogin(ctx, existing)
		if err != nil {
			return nil, nil, err
		}
		return existing, result, nil
	case !errors.Is(err, store.ErrRecordNotFound):
		s.metrics.RecordDatabaseQueryError("get_identity_by_email")
		log.Printf("[OAuth] provider=%s email lookup failed: %v", providerKey, err)
		return nil, nil, fmt.Errorf("failed to look up email: %w", err)
	}

	return s.createOAuthIdentity(ctx, providerKey, email, profile.DisplayName)
}

// createOAuthIdentity signs the access token before inserting the row.
// A signing failure persists nothing.
func (s *AuthService) createOAuthIdentity(
	ctx context.Context,
	providerKey, email, displayName string,
) (*models.Identity, *core.TokenResult, error) {
	identity := &models.Identity{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		IsVerified:  true,
		IsActive:    true,
		AuthSource:  providerKey,
		LastLoginAt: s.now(),
	}

	result, err := s.issueAccessToken(identity)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, store.ErrIdentityConflict) {
			// Lost a race with a concurrent callback for the same email.
			log.Printf("[OAuth] provider=%s email=%s created concurrently", providerKey, email)
			return nil, nil, ErrDuplicateEmail
		}
		s.metrics.RecordDatabaseQueryError("create_identity")
		log.Printf("[OAuth] provider=%s create identity failed: %v", providerKey, err)
		return nil, nil, fmt.Errorf("failed to create identity: %w", err)
	}

	s.metrics.RecordIdentityCreated(providerKey)
	log.Printf("[OAuth] Created identity=%s provider=%s", identity.ID, providerKey)
	return identity, result, nil
}

// completeLogin issues the access token first so a signing failure leaves
// last_login_at untouched.
func (s *AuthService) completeLogin(
	ctx context.Context,
	identity *models.Identity,
) (*core.TokenResult, error) {
	result, err := s.issueAccessToken(identity)
	if err != nil {
		return nil, err
	}
	if err := s.touchLastLogin(ctx, identity); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AuthService) touchLastLogin(ctx context.Context, identity *models.Identity) error {
	now := s.now()
	if err := s.store.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		s.metrics.RecordDatabaseQueryError("update_last_login")
		log.Printf("[Auth] Failed to update last login for identity=%s: %v", identity.ID, err)
		return fmt.Errorf("failed to update last login: %w", err)
	}
	identity.LastLoginAt = now
	s.identities.Invalidate(ctx, identity.ID)
	return nil
}

func (s *AuthService) issueAccessToken(identity *models.Identity) (*core.TokenResult, error) {
	start := time.Now()
	result, err := s.tokens.Issue(identity.ID, core.TokenPurposeAccess, 0)
	if err != nil {
		log.Printf("[Token] Failed to issue access token for identity=%s: %v", identity.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrTokenCreationFailed, err)
	}
	s.metrics.RecordTokenIssued(core.TokenPurposeAccess, time.Since(start))
	return result, nil
}

// CurrentIdentity resolves a bearer access token to its identity.
func (s *AuthService) CurrentIdentity(ctx context.Context, bearerToken string) (*models.Identity, error) {
	claims, err := s.identities.verifyToken(bearerToken, core.TokenPurposeAccess)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			log.Printf("[Token] Token subject=%s has no identity", claims.Subject)
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return identity, nil
}
