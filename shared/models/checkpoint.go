package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncCheckpoint is the ephemeral resume state of a sync, kept in Redis by
// the sync-state repository. It survives worker crashes; a new worker loads
// it and continues from LastOffset. Retention is bounded (7 days).
type SyncCheckpoint struct {
	LibraryID      uuid.UUID         `json:"library_id"`
	OperationID    uuid.UUID         `json:"operation_id"`
	PlatformCode   string            `json:"platform_code"`
	UserIdentifier string            `json:"user_identifier"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	LastOffset     int               `json:"last_offset"`
	GamesSynced    int               `json:"games_synced"`
	GamesAdded     int               `json:"games_added"`
	GamesUpdated   int               `json:"games_updated"`
	Status         LibrarySyncStatus `json:"status"`
	Error          *string           `json:"error,omitempty"`
	RetryAfterSec  int               `json:"retry_after_sec,omitempty"` // set when status is rate_limited
}
