package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressStatus is the client-facing status carried by progress events.
type ProgressStatus string

const (
	ProgressStarting    ProgressStatus = "starting"
	ProgressSyncing     ProgressStatus = "syncing"
	ProgressCompleted   ProgressStatus = "completed"
	ProgressFailed      ProgressStatus = "failed"
	ProgressRateLimited ProgressStatus = "rate_limited"
	ProgressCancelled   ProgressStatus = "cancelled"
)

// IsTerminal reports whether no further events follow for the operation.
func (s ProgressStatus) IsTerminal() bool {
	switch s {
	case ProgressCompleted, ProgressFailed, ProgressRateLimited, ProgressCancelled:
		return true
	}
	return false
}

// CurrentGame identifies the game a sync is processing right now.
type CurrentGame struct {
	Title          string `json:"title"`
	PlatformGameID string `json:"platform_game_id"`
}

// ProgressEvent is the document published to the realtime bus on channel
// sync:progress and mirrored to the per-library snapshot key for polling.
// Sequence is a per-operation monotonic counter so subscribers can detect
// reordering.
type ProgressEvent struct {
	OperationID     uuid.UUID      `json:"operation_id"`
	LibraryID       uuid.UUID      `json:"library_id"`
	Platform        string         `json:"platform"`
	Status          ProgressStatus `json:"status"`
	ProgressPercent float64        `json:"progress_percentage"` // 0..100
	GamesProcessed  int            `json:"games_processed"`
	GamesTotal      *int           `json:"games_total,omitempty"`
	GamesAdded      int            `json:"games_added"`
	GamesUpdated    int            `json:"games_updated"`
	CurrentGame     *CurrentGame   `json:"current_game,omitempty"`
	RatePerMinute   float64        `json:"rate_per_minute,omitempty"`
	Message         string         `json:"message,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	Sequence        int64          `json:"sequence"`
	StartedAt       time.Time      `json:"started_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
