package handlers

import (
	"context"
	"net/http"

	"gatekeeper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountService is the account lifecycle as seen by the HTTP layer
type AccountService interface {
	Register(ctx context.Context, email, password string) (string, error)
	VerifyAccount(ctx context.Context, email, otp string) (string, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// AuthHandler handles HTTP requests for registration, verification, login and password reset
type AuthHandler struct {
	service AccountService
	logger  zerolog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service AccountService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register godoc
// @Summary Register a new account
// @Description Create an unverified account and email it a 6 digit verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.SuccessResponse "Registration successful"
// @Failure 400 {object} models.ErrorResponse "Invalid email or weak password"
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 502 {object} models.ErrorResponse "Verification email could not be sent"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.service.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Message: msg})
}

// Verify godoc
// @Summary Verify an account
// @Description Confirm an account with the code sent by email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "Email and verification code"
// @Success 200 {object} models.SuccessResponse "Account verified"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired code"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.service.VerifyAccount(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: msg})
}

// ResendVerification godoc
// @Summary Resend verification code
// @Description Issue a fresh verification code to an unverified account. The answer is the same for unknown addresses.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResendVerificationRequest true "Email address"
// @Success 200 {object} models.SuccessResponse "Request accepted"
// @Failure 400 {object} models.ErrorResponse "Invalid email"
// @Failure 502 {object} models.ErrorResponse "Verification email could not be sent"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.service.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: msg})
}

// Login godoc
// @Summary Account login
// @Description Authenticate with email and password and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 403 {object} models.ErrorResponse "Account not verified"
// @Failure 423 {object} models.LockedResponse "Account locked"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Token: token})
}

// RequestPasswordReset godoc
// @Summary Request password reset
// @Description Email a password reset link valid for one hour
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordResetRequest true "Email address"
// @Success 200 {object} models.SuccessResponse "Reset email sent"
// @Failure 400 {object} models.ErrorResponse "Invalid email"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 502 {object} models.ErrorResponse "Reset email could not be sent"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.service.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: msg})
}

// CompletePasswordReset godoc
// @Summary Complete password reset
// @Description Set a new password using the token from the reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CompleteResetRequest true "Reset token and new password"
// @Success 200 {object} models.SuccessResponse "Password reset"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired token, or weak password"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password/complete [post]
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req models.CompleteResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: msg})
}
