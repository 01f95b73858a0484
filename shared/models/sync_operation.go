package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncType mirrors the sync_type_enum type in the database.
type SyncType string

const (
	SyncTypeFull        SyncType = "full_sync"
	SyncTypeIncremental SyncType = "incremental_sync"
	SyncTypeManual      SyncType = "manual_sync"
)

// ParseSyncType maps the wire values of the sync trigger endpoint
// (manual, incremental, full) to the stored enum. Empty input parses to
// SyncTypeManual; ok is false for anything else unrecognized.
func ParseSyncType(s string) (SyncType, bool) {
	switch s {
	case "", "manual":
		return SyncTypeManual, true
	case "incremental":
		return SyncTypeIncremental, true
	case "full":
		return SyncTypeFull, true
	}
	return "", false
}

// OperationStatus mirrors the operation_status_enum type in the database.
type OperationStatus string

const (
	OperationStarted    OperationStatus = "started"
	OperationInProgress OperationStatus = "in_progress"
	OperationCompleted  OperationStatus = "completed"
	OperationFailed     OperationStatus = "failed"
	OperationCancelled  OperationStatus = "cancelled"
)

// SyncOperation is the durable audit record of one sync run. Counters only
// ever grow while the operation is open.
type SyncOperation struct {
	ID          uuid.UUID       `json:"id" db:"operation_id"`
	LibraryID   uuid.UUID       `json:"library_id" db:"library_id"`
	Type        SyncType        `json:"type" db:"sync_type"`
	Status      OperationStatus `json:"status" db:"status"`
	StartedAt   time.Time       `json:"started_at" db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`

	GamesProcessed int `json:"games_processed" db:"games_processed"`
	GamesAdded     int `json:"games_added" db:"games_added"`
	GamesUpdated   int `json:"games_updated" db:"games_updated"`
	ErrorsCount    int `json:"errors_count" db:"errors_count"`

	ErrorDetails *string `json:"error_details,omitempty" db:"error_details"`
	Log          *string `json:"log,omitempty" db:"log"`
}

// SyncSummary is the worker's per-job output.
type SyncSummary struct {
	OperationID    uuid.UUID       `json:"operation_id"`
	Status         OperationStatus `json:"status"`
	GamesProcessed int             `json:"games_processed"`
	GamesAdded     int             `json:"games_added"`
	GamesUpdated   int             `json:"games_updated"`
	ErrorsCount    int             `json:"errors_count"`
	DurationMs     int64           `json:"duration_ms"`
}
