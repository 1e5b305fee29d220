package services

import "errors"

var (
	// Password login
	ErrUsernameNotFound   = errors.New("username not found")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// OAuth login
	ErrUnknownProvider          = errors.New("unknown identity provider")
	ErrMissingAuthorizationCode = errors.New("missing authorization code")
	ErrUpstreamFailure          = errors.New("identity provider request failed")
	ErrDuplicateEmail           = errors.New("email is already registered")
	ErrIdentityInactive         = errors.New("identity is disabled")

	// Tokens
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenInvalid        = errors.New("token is invalid")
	ErrTokenCreationFailed = errors.New("failed to create token")

	// Registration and verification
	ErrIdentityExists   = errors.New("username or email is already registered")
	ErrAlreadyVerified  = errors.New("email is already verified")
	ErrIdentityNotFound = errors.New("identity not found")

	// Password reset
	ErrNoLocalCredentials = errors.New("identity has no local password")
)

// ErrorKind is the client-visible failure class of a domain error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindUpstreamFailure
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unrecognised errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUsernameNotFound),
		errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrIdentityNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrIdentityInactive),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid):
		return KindUnauthorized
	case errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrIdentityExists),
		errors.Is(err, ErrAlreadyVerified):
		return KindConflict
	case errors.Is(err, ErrUpstreamFailure):
		return KindUpstreamFailure
	case errors.Is(err, ErrMissingAuthorizationCode),
		errors.Is(err, ErrNoLocalCredentials):
		return KindBadRequest
	default:
		return KindInternal
	}
}
