package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Kind          string `json:"error_kind"`
	CorrelationID string `json:"correlation_id"`
}

// StatusFor maps an error category to its HTTP status.
func StatusFor(category errors.ErrorCategory) int {
	switch category {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryProviderAuth:
		return http.StatusBadGateway
	case errors.CategoryProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err as an ErrorResponse. The correlation id is the
// request id when one was assigned.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.CategoryGeneric
	}
	status := StatusFor(kind)

	correlationID := ctx.Response().Header().Get(echo.HeaderXRequestID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	log := c.log.WithContext(ctx.Request().Context())
	fields := []logger.Field{
		logger.String("path", ctx.Path()),
		logger.Int("status", status),
		logger.String("error_kind", string(kind)),
		logger.String("correlation_id", correlationID),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Debug(message, fields...)
	}

	return ctx.JSON(status, ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Kind:          string(kind),
		CorrelationID: correlationID,
	})
}
