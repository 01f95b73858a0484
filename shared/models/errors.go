package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound          = errors.New("resource not found") // General not found
	ErrPlatformNotFound  = errors.New("platform not found")
	ErrLibraryNotFound   = errors.New("library not found")
	ErrGameNotFound      = errors.New("game not found")
	ErrGameAlreadyExists = errors.New("game with this external id already exists")

	// Library Errors
	ErrLibraryAlreadyExists = errors.New("library for this platform and user already exists")
	ErrSyncInProgress       = errors.New("sync is already in progress for this library")
	ErrNoActiveSync         = errors.New("no active sync for this library")

	// Collection Errors
	ErrCollectionNotFound      = errors.New("collection not found")
	ErrCollectionAlreadyExists = errors.New("collection with this name already exists in the library")

	// Authentication Errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")

	// Rate Limiting Errors
	ErrRateExceededDaily = errors.New("daily platform call cap exceeded")

	// Job Queue Errors
	ErrJobNotFound  = errors.New("job not found")
	ErrQueueUnknown = errors.New("unknown queue name")

	// Sync State Errors
	ErrLockNotHeld        = errors.New("sync lock is not held by this worker")
	ErrCheckpointNotFound = errors.New("sync checkpoint not found")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
