package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gatekeeper/internal/account"
	"gatekeeper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

// writeError maps the account error taxonomy onto an HTTP response.
// Unknown errors are logged and reported as a bare 500.
func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	var locked *account.AccountLockedError
	switch {
	case errors.As(err, &locked):
		c.Header("Retry-After", strconv.Itoa(locked.RemainingMinutes*60))
		c.JSON(http.StatusLocked, models.LockedResponse{
			Error:             locked.Error(),
			RetryAfterMinutes: locked.RemainingMinutes,
		})
	case errors.Is(err, account.ErrInvalidInput),
		errors.Is(err, account.ErrWeakCredential),
		errors.Is(err, account.ErrInvalidOrExpiredCode),
		errors.Is(err, account.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrAlreadyExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrNotVerified):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrDeliveryFailed):
		logError(c, logger, err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: account.ErrDeliveryFailed.Error()})
	default:
		logError(c, logger, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}

func logError(c *gin.Context, logger zerolog.Logger, err error) {
	event := logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath())
	if oopsErr, ok := oops.AsOops(err); ok {
		event = event.Interface("code", oopsErr.Code())
	}
	event.Msg("request failed")
}
