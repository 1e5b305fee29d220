package handlers

import (
	"log"
	"net/http"

	"github.com/aqeluk/THYNKAPI/internal/services"

	"github.com/gin-gonic/gin"
)

// OAuthHandler serves the provider authorize and redirect endpoints.
type OAuthHandler struct {
	authService *services.AuthService
}

func NewOAuthHandler(authService *services.AuthService) *OAuthHandler {
	return &OAuthHandler{authService: authService}
}

// Authorize godoc
//
//	@Summary	Start an OAuth login
//	@Tags		OAuth
//	@Param		provider	path	string	true	"Provider key (github, microsoft, google)"
//	@Success	302
//	@Failure	400	{object}	errorBody	"Unknown provider"
//	@Router		/{provider}/authorize [get]
func (h *OAuthHandler) Authorize(c *gin.Context) {
	url, err := h.authService.AuthorizationURL(c.Param("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Redirect godoc
//
//	@Summary	Complete an OAuth login
//	@Tags		OAuth
//	@Produce	json
//	@Param		provider	path		string	true	"Provider key"
//	@Param		code		query		string	true	"Authorization code"
//	@Success	200			{object}	tokenBody
//	@Failure	400			{object}	errorBody	"Unknown provider or missing code"
//	@Failure	401			{object}	errorBody	"Identity disabled"
//	@Failure	409			{object}	errorBody	"Email already registered"
//	@Failure	502			{object}	errorBody	"Provider request failed"
//	@Router		/{provider}/redirect [get]
func (h *OAuthHandler) Redirect(c *gin.Context) {
	provider := c.Param("provider")
	if providerErr := c.Query("error"); providerErr != "" {
		log.Printf("[OAuth] provider=%s returned error=%s description=%s",
			provider, providerErr, c.Query("error_description"))
	}

	result, err := h.authService.LoginWithOAuth(c.Request.Context(), provider, c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse(result))
}

type providerInfo struct {
	Key          string `json:"key"`
	AuthorizeURL string `json:"authorize_url"`
}

// Providers godoc
//
//	@Summary	List configured OAuth providers
//	@Tags		OAuth
//	@Produce	json
//	@Success	200	{object}	object{providers=[]providerInfo}
//	@Router		/providers [get]
func (h *OAuthHandler) Providers(c *gin.Context) {
	keys := h.authService.ProviderKeys()
	providers := make([]providerInfo, 0, len(keys))
	for _, key := range keys {
		providers = append(providers, providerInfo{
			Key:          key,
			AuthorizeURL: "/" + key + "/authorize",
		})
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
