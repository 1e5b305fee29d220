package handlers

import (
	"net/http"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/middleware"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler serves registration, email verification, password reset and
// the current identity.
type UserHandler struct {
	identityService *services.IdentityService
}

func NewUserHandler(identityService *services.IdentityService) *UserHandler {
	return &UserHandler{identityService: identityService}
}

type registerRequest struct {
	Username    string `json:"username"     binding:"required,min=3,max=64"`
	Email       string `json:"email"        binding:"required,email"`
	Password    string `json:"password"     binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"max=128"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type newPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type resendResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type identityResponse struct {
	ID          string     `json:"id"`
	Username    *string    `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	IsVerified  bool       `json:"is_verified"`
	IsActive    bool       `json:"is_active"`
	AuthSource  string     `json:"auth_source"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newIdentityResponse(identity *models.Identity) identityResponse {
	resp := identityResponse{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		IsVerified:  identity.IsVerified,
		IsActive:    identity.IsActive,
		AuthSource:  identity.AuthSource,
		CreatedAt:   identity.CreatedAt,
	}
	if !identity.LastLoginAt.IsZero() {
		lastLogin := identity.LastLoginAt
		resp.LastLoginAt = &lastLogin
	}
	return resp
}

// Register godoc
//
//	@Summary	Register a local identity
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		registerRequest	true	"Registration"
//	@Success	201		{object}	identityResponse
//	@Failure	400		{object}	errorBody
//	@Failure	409		{object}	errorBody	"Username or email taken"
//	@Router		/users/registration [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	identity, err := h.identityService.Register(c.Request.Context(), services.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newIdentityResponse(identity))
}

// Verify godoc
//
//	@Summary		Verify an email address or resend the link
//	@Description	With token, marks the identity verified. With user_id, sends a fresh verification link.
//	@Tags			Users
//	@Produce		json
//	@Param			token	query		string	false	"Verification token"
//	@Param			user_id	query		string	false	"Identity to resend the link to"
//	@Success		200		{object}	identityResponse
//	@Failure		400		{object}	errorBody
//	@Failure		401		{object}	errorBody	"Invalid or expired token"
//	@Failure		404		{object}	errorBody	"Unknown user_id"
//	@Failure		409		{object}	errorBody	"Already verified"
//	@Router			/users/verification [get]
func (h *UserHandler) Verify(c *gin.Context) {
	if tokenString := c.Query("token"); tokenString != "" {
		identity, err := h.identityService.VerifyEmail(c.Request.Context(), tokenString)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newIdentityResponse(identity))
		return
	}

	if userID := c.Query("user_id"); userID != "" {
		identity, err := h.identityService.ResendVerification(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resendResponse{Email: identity.Email, Message: "verification link sent"})
		return
	}

	badRequest(c, "token or user_id is required")
}

// RequestPasswordReset godoc
//
//	@Summary	Request a password reset link
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		passwordResetRequest	true	"Account email"
//	@Success	200		{object}	messageResponse
//	@Failure	400		{object}	errorBody
//	@Failure	404		{object}	errorBody	"Unknown email"
//	@Router		/users/request [post]
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.identityService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "password reset link sent"})
}

// ResetPassword godoc
//
//	@Summary	Set a new password with a reset token
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		token	query		string				true	"Password reset token"
//	@Param		body	body		newPasswordRequest	true	"New password"
//	@Success	200		{object}	identityResponse
//	@Failure	400		{object}	errorBody
//	@Failure	401		{object}	errorBody	"Invalid, spent or expired token"
//	@Router		/users/reset [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		badRequest(c, "token is required")
		return
	}

	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	identity, err := h.identityService.ResetPassword(c.Request.Context(), tokenString, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newIdentityResponse(identity))
}

// Me godoc
//
//	@Summary	Current identity
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	identityResponse
//	@Failure	401	{object}	errorBody
//	@Router		/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		middleware.AbortWithInvalidToken(c, "bearer token required")
		return
	}
	c.JSON(http.StatusOK, newIdentityResponse(identity))
}
