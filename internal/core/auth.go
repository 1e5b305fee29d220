package core

import (
	"context"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/models"
)

// PasswordHasher hashes and verifies local credentials.
// Verify must compare in constant time.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	Name() string
}

// IdentityStore is the persistence contract the auth flows depend on.
// Lookups return store.ErrRecordNotFound when no row matches.
type IdentityStore interface {
	GetIdentityByUsername(ctx context.Context, username string) (*models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*models.Identity, error)
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	MarkVerified(ctx context.Context, id string) error
	// UpdatePassword replaces the password hash and records when it changed.
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
}
