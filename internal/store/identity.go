package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/models"

	"gorm.io/gorm"
)

var _ core.IdentityStore = (*Store)(nil)

func (s *Store) GetIdentityByUsername(
	ctx context.Context,
	username string,
) (*models.Identity, error) {
	return s.firstIdentity(ctx, "username = ?", username)
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.firstIdentity(ctx, "email = ?", email)
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.firstIdentity(ctx, "id = ?", id)
}

func (s *Store) firstIdentity(
	ctx context.Context,
	query string,
	arg any,
) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.WithContext(ctx).Where(query, arg).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// CreateIdentity inserts a new identity. A taken username or email yields ErrIdentityConflict.
func (s *Store) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	if err := s.db.WithContext(ctx).Create(identity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrIdentityConflict, err)
		}
		return err
	}
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateIdentity(ctx, id, map[string]any{"last_login_at": at})
}

func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.updateIdentity(ctx, id, map[string]any{"is_verified": true})
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return s.updateIdentity(ctx, id, map[string]any{
		"password_hash":       passwordHash,
		"password_changed_at": at,
	})
}

func (s *Store) updateIdentity(ctx context.Context, id string, values map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
