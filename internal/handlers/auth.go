package handlers

import (
	"net/http"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves password login.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
//
//	@Summary		Password login
//	@Description	Verify a username and password and issue a bearer access token
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Username"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	tokenBody
//	@Failure		400			{object}	errorBody	"Missing username or password"
//	@Failure		401			{object}	errorBody	"Wrong password"
//	@Failure		404			{object}	errorBody	"Unknown username"
//	@Router			/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		badRequest(c, "username and password are required")
		return
	}

	result, err := h.authService.LoginWithPassword(c.Request.Context(), username, password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse(result))
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func tokenResponse(result *core.TokenResult) tokenBody {
	expiresIn := int(time.Until(result.ExpiresAt).Round(time.Second).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return tokenBody{
		AccessToken: result.TokenString,
		TokenType:   result.TokenType,
		ExpiresIn:   expiresIn,
	}
}
