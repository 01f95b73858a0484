package models

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// AdminContextKey marks the request as authenticated admin. Value is the
	// admin email string.
	AdminContextKey contextKey = "adminEmail"
	// TraceIDContextKey holds the per-request trace id string.
	TraceIDContextKey contextKey = "traceID"
)

// GetAdminFromContext extracts the authenticated admin email from the context.
func GetAdminFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(AdminContextKey).(string)
	return email, ok
}

// GetTraceIDFromContext extracts the request trace id from the context.
func GetTraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(TraceIDContextKey).(string)
	return traceID, ok
}
