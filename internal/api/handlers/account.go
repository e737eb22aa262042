package handlers

import (
	"net/http"

	"gatekeeper/internal/api/middleware"
	"gatekeeper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AccountHandler struct {
	service AccountService
	logger  zerolog.Logger
}

func NewAccountHandler(service AccountService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger.With().Str("component", "account_handler").Logger(),
	}
}

// GetAccount godoc
// @Summary Get current account
// @Description Return the account identified by the bearer token
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AccountResponse
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /account [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	acc, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewAccountResponse(acc))
}
