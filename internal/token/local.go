package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ core.TokenProvider = (*LocalTokenProvider)(nil)

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

type tokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// LocalTokenProvider signs and verifies HMAC JWTs. Its secret, algorithm and
// default lifetime are fixed at construction.
type LocalTokenProvider struct {
	secret     []byte
	algorithm  string
	method     jwt.SigningMethod
	expiration time.Duration
	issuer     string
	now        func() time.Time
}

// NewLocalTokenProvider creates a new local token provider
func NewLocalTokenProvider(cfg *config.Config) *LocalTokenProvider {
	return &LocalTokenProvider{
		secret:     []byte(cfg.JWTSecret),
		algorithm:  cfg.JWTAlgorithm,
		method:     signingMethods[cfg.JWTAlgorithm],
		expiration: cfg.JWTExpiration,
		issuer:     cfg.BaseURL,
		now:        time.Now,
	}
}

func (p *LocalTokenProvider) Name() string {
	return "local"
}

// Issue signs a token for subject. ttl <= 0 selects the configured expiration.
func (p *LocalTokenProvider) Issue(subject, purpose string, ttl time.Duration) (*Result, error) {
	if len(p.secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrTokenGeneration)
	}
	if p.method == nil {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrTokenGeneration, p.algorithm)
	}
	if ttl <= 0 {
		ttl = p.expiration
	}

	now := p.now()
	claims := tokenClaims{
		Type: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	tokenString, err := jwt.NewWithClaims(p.method, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   claims.ExpiresAt.Time,
		Claims:      toClaims(&claims),
	}, nil
}

// Verify checks the signature first and the expiry second, so an expired
// token with a foreign signature is reported as ErrInvalidToken.
func (p *LocalTokenProvider) Verify(tokenString string) (*Claims, error) {
	if len(p.secret) == 0 || p.method == nil {
		return nil, fmt.Errorf("%w: verifier is not configured", ErrInvalidToken)
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	if claims.Type == "" {
		return nil, fmt.Errorf("%w: missing type claim", ErrInvalidToken)
	}

	return toClaims(claims), nil
}

func toClaims(c *tokenClaims) *Claims {
	out := &Claims{
		ID:      c.ID,
		Subject: c.Subject,
		Purpose: c.Type,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
