package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/services"

	"github.com/gin-gonic/gin"
)

// ContextIdentity is the gin context key holding the authenticated *models.Identity.
const ContextIdentity = "identity"

// IdentityResolver resolves a bearer access token to its identity.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, bearerToken string) (*models.Identity, error)
}

// RequireBearer rejects requests without a valid access token in the
// Authorization header and stores the resolved identity in the context.
func RequireBearer(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithInvalidToken(c, "bearer token required")
			return
		}

		identity, err := resolver.CurrentIdentity(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				AbortWithInvalidToken(c, "token has expired")
			case errors.Is(err, services.ErrTokenInvalid):
				AbortWithInvalidToken(c, "token is invalid")
			default:
				log.Printf("[Auth] Resolving bearer token failed: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "failed to resolve identity",
				})
			}
			return
		}

		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireBearer.
func CurrentIdentity(c *gin.Context) (*models.Identity, bool) {
	v, exists := c.Get(ContextIdentity)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok && identity != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AbortWithInvalidToken writes a 401 with an RFC 6750 invalid_token challenge.
func AbortWithInvalidToken(c *gin.Context, description string) {
	c.Header("WWW-Authenticate", fmt.Sprintf(
		`Bearer error="invalid_token", error_description=%q`, description,
	))
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_token",
		"error_description": description,
	})
}
