package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrIdentityConflict is returned when a username or email is already taken
	ErrIdentityConflict = errors.New("identity already exists")
)
