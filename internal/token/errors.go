package token

import "errors"

var (
	// ErrTokenGeneration indicates the signer is misconfigured or failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrInvalidToken indicates a malformed token, a bad signature or a missing claim
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates a correctly signed token whose exp has passed
	ErrExpiredToken = errors.New("token expired")
)
