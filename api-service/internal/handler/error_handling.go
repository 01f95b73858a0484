package handler

import (
	"errors"
	"net/http"

	"game-library-server/api-service/internal/service"
	"game-library-server/shared/middleware"
	"game-library-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError maps service-layer errors to the HTTP status codes and
// stable error codes of the API contract, wrapped in the single error
// envelope. Unknown errors become 500 with the trace id for correlation.
func handleServiceError(c *gin.Context, err error) {
	traceID := middleware.TraceID(c)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		details := make(map[string]interface{}, len(validationErr.Fields))
		for field, reason := range validationErr.Fields {
			details[field] = reason
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
			models.NewAPIError(models.CodeValidationError, "Validation failed", traceID, details))
		return
	}

	var conflictErr *service.SyncConflictError
	if errors.As(err, &conflictErr) {
		var details map[string]interface{}
		if conflictErr.OperationID != nil {
			details = map[string]interface{}{"operation_id": conflictErr.OperationID.String()}
		}
		c.AbortWithStatusJSON(http.StatusConflict,
			models.NewAPIError(models.CodeSyncAlreadyInProgress, "A sync is already in progress for this library", traceID, details))
		return
	}

	var statusCode int
	var code, message string

	switch {
	case errors.Is(err, models.ErrLibraryNotFound):
		statusCode, code, message = http.StatusNotFound, models.CodeLibraryNotFound, "Library not found"
	case errors.Is(err, models.ErrGameNotFound):
		statusCode, code, message = http.StatusNotFound, models.CodeGameNotFound, "Game not found"
	case errors.Is(err, models.ErrPlatformNotFound):
		statusCode, code, message = http.StatusNotFound, models.CodePlatformNotFound, "Platform not found"
	case errors.Is(err, models.ErrCollectionNotFound), errors.Is(err, models.ErrNotFound):
		statusCode, code, message = http.StatusNotFound, models.CodeNotFound, "Resource not found"
	case errors.Is(err, models.ErrLibraryAlreadyExists):
		statusCode, code, message = http.StatusConflict, models.CodeLibraryAlreadyExists, "A library for this platform and user already exists"
	case errors.Is(err, models.ErrCollectionAlreadyExists):
		statusCode, code, message = http.StatusConflict, models.CodeCollectionAlreadyExists, "A collection with this name already exists in the library"
	case errors.Is(err, models.ErrNoActiveSync):
		statusCode, code, message = http.StatusConflict, models.CodeNoActiveSync, "No active sync for this library"
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode, code, message = http.StatusUnauthorized, models.CodeUnauthorized, "Invalid email or password"
	case errors.Is(err, models.ErrTokenExpired), errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUnauthorized):
		statusCode, code, message = http.StatusUnauthorized, models.CodeUnauthorized, "Authentication required"
	case errors.Is(err, models.ErrForbidden):
		statusCode, code, message = http.StatusForbidden, models.CodeForbidden, "Forbidden"
	case errors.Is(err, models.ErrRateExceededDaily):
		statusCode, code, message = http.StatusTooManyRequests, models.CodeRateLimited, "Platform rate limit exceeded"
	case errors.Is(err, models.ErrInvalidInput):
		statusCode, code, message = http.StatusBadRequest, models.CodeValidationError, err.Error()
	default:
		zap.L().Error("Unhandled service error",
			zap.Error(err), zap.String("traceID", traceID), zap.String("path", c.FullPath()))
		statusCode, code, message = http.StatusInternalServerError, models.CodeInternalError, "An unexpected internal error occurred"
	}

	c.AbortWithStatusJSON(statusCode, models.NewAPIError(code, message, traceID, nil))
}

// abortBadRequest rejects malformed input (unparseable body, bad uuid).
func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		models.NewAPIError(models.CodeValidationError, message, middleware.TraceID(c), nil))
}
