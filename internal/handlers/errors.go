package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/aqeluk/THYNKAPI/internal/middleware"
	"github.com/aqeluk/THYNKAPI/internal/services"

	"github.com/gin-gonic/gin"
)

// errorCodes maps domain errors to the "error" field of the response body.
// The sentinel's own message becomes error_description, so wrapped upstream
// details never reach the client.
var errorCodes = []struct {
	err  error
	code string
}{
	{services.ErrUsernameNotFound, "username_not_found"},
	{services.ErrInvalidCredentials, "invalid_credentials"},
	{services.ErrUnknownProvider, "unknown_provider"},
	{services.ErrMissingAuthorizationCode, "invalid_request"},
	{services.ErrUpstreamFailure, "upstream_failure"},
	{services.ErrDuplicateEmail, "duplicate_email"},
	{services.ErrIdentityInactive, "account_disabled"},
	{services.ErrIdentityExists, "identity_exists"},
	{services.ErrAlreadyVerified, "already_verified"},
	{services.ErrIdentityNotFound, "not_found"},
	{services.ErrNoLocalCredentials, "no_local_password"},
	{services.ErrTokenExpired, "invalid_token"},
	{services.ErrTokenInvalid, "invalid_token"},
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// respondError converts a domain error into its HTTP response.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, errorBody{
			Error:            "server_error",
			ErrorDescription: "internal server error",
		})
		return
	}

	code, description := "invalid_request", err.Error()
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			code, description = e.code, e.err.Error()
			break
		}
	}

	if errors.Is(err, services.ErrTokenExpired) || errors.Is(err, services.ErrTokenInvalid) {
		middleware.AbortWithInvalidToken(c, description)
		return
	}

	c.JSON(statusFor(kind, err), errorBody{Error: code, ErrorDescription: description})
}

func statusFor(kind services.ErrorKind, err error) int {
	switch kind {
	case services.KindNotFound:
		// An unknown provider is a malformed route, not a missing resource.
		if errors.Is(err, services.ErrUnknownProvider) {
			return http.StatusBadRequest
		}
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUpstreamFailure:
		return http.StatusBadGateway
	case services.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request", ErrorDescription: description})
}
