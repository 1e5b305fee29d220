package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/store"
	"github.com/aqeluk/THYNKAPI/internal/token"

	"github.com/google/uuid"
)

const identityCacheKeyPrefix = "identity:"

// Link paths embedded in notifications
const (
	verificationPath  = "/users/verification"
	passwordResetPath = "/users/reset"
)

// Notifier delivers account links to the owner of an identity.
type Notifier interface {
	SendVerification(ctx context.Context, identity *models.Identity, link string) error
	SendPasswordReset(ctx context.Context, identity *models.Identity, link string) error
}

// LogNotifier writes account links to the process log.
type LogNotifier struct{}

func (LogNotifier) SendVerification(
	_ context.Context,
	identity *models.Identity,
	link string,
) error {
	log.Printf("[Auth] Verification link for identity=%s email=%s: %s", identity.ID, identity.Email, link)
	return nil
}

func (LogNotifier) SendPasswordReset(
	_ context.Context,
	identity *models.Identity,
	link string,
) error {
	log.Printf("[Auth] Password reset link for identity=%s email=%s: %s", identity.ID, identity.Email, link)
	return nil
}

// RegisterInput is the data required to create a local identity.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// IdentityService owns identity lookups, registration, email verification
// and password reset.
type IdentityService struct {
	store           core.IdentityStore
	hasher          core.PasswordHasher
	tokens          core.TokenProvider
	notifier        Notifier
	cache           core.Cache[models.Identity]
	cacheTTL        time.Duration
	verificationTTL time.Duration
	resetTTL        time.Duration
	baseURL         string
	metrics         core.Recorder
	now             func() time.Time
}

func NewIdentityService(
	s core.IdentityStore,
	hasher core.PasswordHasher,
	tokens core.TokenProvider,
	notifier Notifier,
	c core.Cache[models.Identity],
	cacheTTL time.Duration,
	verificationTTL time.Duration,
	resetTTL time.Duration,
	baseURL string,
	m core.Recorder,
) *IdentityService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &IdentityService{
		store:           s,
		hasher:          hasher,
		tokens:          tokens,
		notifier:        notifier,
		cache:           c,
		cacheTTL:        cacheTTL,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		baseURL:         strings.TrimRight(baseURL, "/"),
		metrics:         m,
		now:             time.Now,
	}
}

// GetIdentityByID reads an identity through the identity cache.
func (s *IdentityService) GetIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	fetched := false
	identity, err := s.cache.GetWithFetch(
		ctx,
		identityCacheKeyPrefix+id,
		s.cacheTTL,
		func(ctx context.Context, _ string) (models.Identity, error) {
			fetched = true
			identity, err := s.store.GetIdentityByID(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrRecordNotFound) {
					return models.Identity{}, ErrIdentityNotFound
				}
				s.metrics.RecordDatabaseQueryError("get_identity")
				return models.Identity{}, err
			}
			return *identity, nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.metrics.RecordCacheOperation("get_identity", "miss")
			return nil, ErrIdentityNotFound
		}
		s.metrics.RecordCacheOperation("get_identity", "error")
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if fetched {
		s.metrics.RecordCacheOperation("get_identity", "miss")
	} else {
		s.metrics.RecordCacheOperation("get_identity", "hit")
	}
	return &identity, nil
}

// Invalidate drops the cached copy of an identity. Failures are logged only;
// the entry still expires after the cache TTL.
func (s *IdentityService) Invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, identityCacheKeyPrefix+id); err != nil {
		log.Printf("[Cache] Failed to invalidate identity=%s: %v", id, err)
	}
}

// Register creates an unverified local identity and sends its verification link.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	if err := s.ensureAvailable(ctx, "username", username, s.store.GetIdentityByUsername); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, "email", email, s.store.GetIdentityByEmail); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	identity := &models.Identity{
		ID:           uuid.New().String(),
		Username:     &username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		IsVerified:   false,
		IsActive:     true,
		AuthSource:   models.AuthSourceLocal,
		LastLoginAt:  now,
	}
	if identity.DisplayName == "" {
		identity.DisplayName = username
	}

	// The verification token needs only the id, so it is signed before the row exists.
	link, err := s.issueLink(identity, core.TokenPurposeVerifyEmail, s.verificationTTL, verificationPath)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, store.ErrIdentityConflict) {
			return nil, ErrIdentityExists
		}
		s.metrics.RecordDatabaseQueryError("create_identity")
		log.Printf("[Auth] Failed to create identity email=%s: %v", email, err)
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	s.metrics.RecordIdentityCreated(models.AuthSourceLocal)
	log.Printf("[Auth] Registered identity=%s username=%s", identity.ID, username)

	if err := s.notifier.SendVerification(ctx, identity, link); err != nil {
		log.Printf("[Auth] Failed to send verification for identity=%s: %v", identity.ID, err)
	}

	return identity, nil
}

func (s *IdentityService) ensureAvailable(
	ctx context.Context,
	field, value string,
	lookup func(context.Context, string) (*models.Identity, error),
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return ErrIdentityExists
	case errors.Is(err, store.ErrRecordNotFound):
		return nil
	default:
		s.metrics.RecordDatabaseQueryError("get_identity_by_" + field)
		return fmt.Errorf("failed to look up %s: %w", field, err)
	}
}

// VerifyEmail consumes a verify_email token and marks its identity verified.
func (s *IdentityService) VerifyEmail(ctx context.Context, tokenString string) (*models.Identity, error) {
	claims, err := s.verifyToken(tokenString, core.TokenPurposeVerifyEmail)
	if err != nil {
		return nil, err
	}

	identity, err := s.store.GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		s.metrics.RecordDatabaseQueryError("get_identity")
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.store.MarkVerified(ctx, identity.ID); err != nil {
		s.metrics.RecordDatabaseQueryError("mark_verified")
		return nil, fmt.Errorf("failed to mark identity verified: %w", err)
	}
	s.Invalidate(ctx, identity.ID)

	identity.IsVerified = true
	log.Printf("[Auth] Email verified for identity=%s", identity.ID)
	return identity, nil
}

// ResendVerification sends a fresh verification link to an unverified identity.
func (s *IdentityService) ResendVerification(ctx context.Context, id string) (*models.Identity, error) {
	identity, err := s.store.GetIdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_identity")
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity.IsVerified {
		return nil, ErrAlreadyVerified
	}

	link, err := s.issueLink(identity, core.TokenPurposeVerifyEmail, s.verificationTTL, verificationPath)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendVerification(ctx, identity, link); err != nil {
		log.Printf("[Auth] Failed to resend verification for identity=%s: %v", identity.ID, err)
		return nil, fmt.Errorf("failed to send verification: %w", err)
	}

	log.Printf("[Auth] Verification resent for identity=%s", identity.ID)
	return identity, nil
}

// RequestPasswordReset sends a password reset link to the local identity
// registered under email.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	identity, err := s.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			log.Printf("[Auth] step=reset_request email=%s not found", email)
			return ErrIdentityNotFound
		}
		s.metrics.RecordDatabaseQueryError("get_identity_by_email")
		return fmt.Errorf("failed to look up email: %w", err)
	}
	if identity.Username == nil {
		log.Printf("[Auth] step=reset_request identity=%s has no local credentials", identity.ID)
		return ErrNoLocalCredentials
	}

	link, err := s.issueLink(identity, core.TokenPurposeResetPassword, s.resetTTL, passwordResetPath)
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(ctx, identity, link); err != nil {
		log.Printf("[Auth] Failed to send password reset for identity=%s: %v", identity.ID, err)
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	log.Printf("[Auth] Password reset requested for identity=%s", identity.ID)
	return nil
}

// ResetPassword consumes a reset_password token and replaces the password.
// A token issued before the last password change is rejected, so each link
// works once.
func (s *IdentityService) ResetPassword(
	ctx context.Context,
	tokenString, newPassword string,
) (*models.Identity, error) {
	claims, err := s.verifyToken(tokenString, core.TokenPurposeResetPassword)
	if err != nil {
		return nil, err
	}

	identity, err := s.store.GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		s.metrics.RecordDatabaseQueryError("get_identity")
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity.PasswordChangedAt != nil && !claims.IssuedAt.After(*identity.PasswordChangedAt) {
		log.Printf("[Auth] step=reset identity=%s token already spent", identity.ID)
		return nil, ErrTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	if err := s.store.UpdatePassword(ctx, identity.ID, hash, now); err != nil {
		s.metrics.RecordDatabaseQueryError("update_password")
		log.Printf("[Auth] Failed to update password for identity=%s: %v", identity.ID, err)
		return nil, fmt.Errorf("failed to update password: %w", err)
	}
	s.Invalidate(ctx, identity.ID)

	identity.PasswordHash = hash
	identity.PasswordChangedAt = &now
	log.Printf("[Auth] Password reset for identity=%s", identity.ID)
	return identity, nil
}

// issueLink signs a token of purpose for identity and returns the absolute
// link carrying it.
func (s *IdentityService) issueLink(
	identity *models.Identity,
	purpose string,
	ttl time.Duration,
	path string,
) (string, error) {
	start := time.Now()
	result, err := s.tokens.Issue(identity.ID, purpose, ttl)
	if err != nil {
		log.Printf("[Token] Failed to issue %s token for identity=%s: %v", purpose, identity.ID, err)
		return "", fmt.Errorf("%w: %v", ErrTokenCreationFailed, err)
	}
	s.metrics.RecordTokenIssued(purpose, time.Since(start))
	return s.baseURL + path + "?token=" + url.QueryEscape(result.TokenString), nil
}

// verifyToken checks tokenString and its purpose, mapping failures to
// ErrTokenExpired or ErrTokenInvalid.
func (s *IdentityService) verifyToken(tokenString, purpose string) (*core.TokenClaims, error) {
	start := time.Now()
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			s.metrics.RecordTokenValidation("expired", time.Since(start))
			return nil, ErrTokenExpired
		}
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return nil, ErrTokenInvalid
	}
	s.metrics.RecordTokenValidation("valid", time.Since(start))
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
