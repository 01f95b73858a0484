package models

import (
	"time"
)

// Stable error codes of the HTTP surface. Clients key user-visible messages
// off these, so once shipped a code never changes.
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeLibraryNotFound         = "LIBRARY_NOT_FOUND"
	CodeGameNotFound            = "GAME_NOT_FOUND"
	CodePlatformNotFound        = "PLATFORM_NOT_FOUND"
	CodeLibraryAlreadyExists    = "LIBRARY_ALREADY_EXISTS"
	CodeCollectionAlreadyExists = "COLLECTION_ALREADY_EXISTS"
	CodeSyncAlreadyInProgress   = "SYNC_ALREADY_IN_PROGRESS"
	CodeNoActiveSync            = "NO_ACTIVE_SYNC"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeRateLimited             = "RATE_LIMITED"
	CodeExternalError           = "EXTERNAL_ERROR"
	CodeInternalError           = "INTERNAL_ERROR"
)

// APIError is the single error body shape of the HTTP surface:
// {"error":{"code","message","details","timestamp","trace_id"}}.
type APIError struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error payload inside the envelope.
type ErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"trace_id"`
}

// NewAPIError builds the envelope with the current UTC timestamp.
func NewAPIError(code, message, traceID string, details map[string]interface{}) APIError {
	return APIError{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	}}
}

// PaginatedResponse wraps list results with the paging envelope.
type PaginatedResponse struct {
	Items interface{} `json:"items"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
	Total int64       `json:"total"`
}

// NewPaginatedResponse computes the page count from total and limit.
func NewPaginatedResponse(items interface{}, page, limit int, total int64) PaginatedResponse {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginatedResponse{Items: items, Page: page, Pages: pages, Total: total}
}
