package models

import (
	"time"
)

// AuthSourceLocal marks identities that registered with a username and password.
const AuthSourceLocal = "local"

type Identity struct {
	ID           string  `gorm:"primaryKey"`
	Username     *string `gorm:"uniqueIndex"`          // nil for OAuth-only identities
	Email        string  `gorm:"uniqueIndex;not null"` // join key for OAuth logins
	PasswordHash string  // OAuth-only identities have no password
	DisplayName  string
	IsVerified   bool
	IsActive     bool   `gorm:"not null;default:true"`
	AuthSource   string `gorm:"not null;default:'local'"` // "local" or the OAuth provider key

	LastLoginAt       time.Time
	PasswordChangedAt *time.Time // reset tokens issued before this are spent
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether the identity can log in with a password.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// UsernameValue returns the username, or "" for OAuth-only identities.
func (i *Identity) UsernameValue() string {
	if i.Username == nil {
		return ""
	}
	return *i.Username
}

// IsExternal returns true if the identity was created by an OAuth provider
func (i *Identity) IsExternal() bool {
	return i.AuthSource != AuthSourceLocal && i.AuthSource != ""
}
