package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LibrarySyncStatus mirrors the sync_status_enum type in the database.
type LibrarySyncStatus string

const (
	SyncStatusPending     LibrarySyncStatus = "pending"
	SyncStatusQueued      LibrarySyncStatus = "queued"
	SyncStatusInProgress  LibrarySyncStatus = "in_progress"
	SyncStatusCompleted   LibrarySyncStatus = "completed"
	SyncStatusFailed      LibrarySyncStatus = "failed"
	SyncStatusRateLimited LibrarySyncStatus = "rate_limited"
	SyncStatusCancelled   LibrarySyncStatus = "cancelled"
)

// UserLibrary is a user's connection to one external platform. It owns its
// UserGame rows exclusively; deleting a library cascades to them.
type UserLibrary struct {
	ID             uuid.UUID         `json:"id" db:"library_id"`
	PlatformID     uuid.UUID         `json:"platform_id" db:"platform_id"`
	UserIdentifier string            `json:"user_identifier" db:"user_identifier"`
	DisplayName    string            `json:"display_name" db:"display_name"`
	Credentials    json.RawMessage   `json:"-" db:"credentials"` // opaque, never returned to clients
	SyncEnabled    bool              `json:"sync_enabled" db:"sync_enabled"`
	SyncStatus     LibrarySyncStatus `json:"sync_status" db:"sync_status"`
	SyncError      *string           `json:"sync_error,omitempty" db:"sync_error"`
	SyncPosition   json.RawMessage   `json:"sync_position,omitempty" db:"sync_position"` // owned by the platform adapter family
	LastSyncAt     *time.Time        `json:"last_sync_at,omitempty" db:"last_sync_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`

	// PlatformCode is joined from platforms for convenience; not a column of
	// user_libraries itself.
	PlatformCode string `json:"platform_code,omitempty" db:"platform_code"`
}

// LibraryStats aggregates per-library totals computed in SQL.
type LibraryStats struct {
	TotalGames           int     `json:"total_games" db:"total_games"`
	TotalPlaytimeMinutes int64   `json:"total_playtime_minutes" db:"total_playtime_minutes"`
	CompletedGames       int     `json:"completed_games" db:"completed_games"`
	PlayingGames         int     `json:"playing_games" db:"playing_games"`
	UnplayedGames        int     `json:"unplayed_games" db:"unplayed_games"`
	AbandonedGames       int     `json:"abandoned_games" db:"abandoned_games"`
	WishlistGames        int     `json:"wishlist_games" db:"wishlist_games"`
	FavoriteGames        int     `json:"favorite_games" db:"favorite_games"`
	CompletionPercent    float64 `json:"completion_percent" db:"-"`
}
