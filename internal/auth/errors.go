package auth

import "errors"

var (
	// ErrExchangeFailed is returned when the token endpoint rejects the code or cannot be reached
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrProfileFetchFailed is returned when the userinfo endpoint fails or returns an unusable profile
	ErrProfileFetchFailed = errors.New("profile fetch failed")

	// ErrDuplicateProvider is returned when two providers share a key
	ErrDuplicateProvider = errors.New("duplicate OAuth provider key")
)
