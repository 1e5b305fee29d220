package core

import "context"

// ExternalProfile is the provider-independent view of an OAuth user profile.
// It only lives for the duration of one login attempt.
type ExternalProfile struct {
	Email       string
	DisplayName string
}

// OAuthProvider is the capability set every OAuth2 identity provider exposes.
// Adding a provider means implementing this interface, not branching in callers.
type OAuthProvider interface {
	// Key is the routing key, e.g. "github".
	Key() string

	// AuthorizationURL is where the user agent is redirected to start a login.
	AuthorizationURL() string

	// ExchangeCode trades an authorization code for the provider's access token.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchProfile reads and normalizes the user profile behind accessToken.
	FetchProfile(ctx context.Context, accessToken string) (*ExternalProfile, error)
}
