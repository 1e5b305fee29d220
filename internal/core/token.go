package core

import "time"

// Token purposes
const (
	TokenPurposeAccess        = "access"
	TokenPurposeVerifyEmail   = "verify_email"
	TokenPurposeResetPassword = "reset_password"
)

// TokenResult is the outcome of a token generation call.
type TokenResult struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
	Claims      *TokenClaims
}

// TokenClaims is the verified payload of a token.
type TokenClaims struct {
	ID        string
	Subject   string
	Purpose   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenProvider signs and verifies stateless bearer tokens.
type TokenProvider interface {
	// Issue signs a token for subject. A zero ttl selects the provider default.
	Issue(subject, purpose string, ttl time.Duration) (*TokenResult, error)
	// Verify checks signature and expiry and returns the claims.
	Verify(tokenString string) (*TokenClaims, error)
	Name() string
}
