package messaging

import (
	"time"

	"github.com/google/uuid"
)

// SyncLifecyclePayload is the data of sync.started, sync.completed,
// sync.failed, sync.rate_limited and sync.cancelled events.
type SyncLifecyclePayload struct {
	OperationID    uuid.UUID  `json:"operation_id"`
	LibraryID      uuid.UUID  `json:"library_id"`
	Platform       string     `json:"platform"`
	GamesProcessed int        `json:"games_processed,omitempty"`
	GamesAdded     int        `json:"games_added,omitempty"`
	GamesUpdated   int        `json:"games_updated,omitempty"`
	DurationMs     int64      `json:"duration_ms,omitempty"`
	Error          string     `json:"error,omitempty"`
	ErrorCode      string     `json:"error_code,omitempty"`
	RetryAt        *time.Time `json:"retry_at,omitempty"`
}

// GameEventPayload is the data of game.added and game.updated events.
type GameEventPayload struct {
	LibraryID     uuid.UUID `json:"library_id"`
	GameID        uuid.UUID `json:"game_id"`
	Title         string    `json:"title"`
	Platform      string    `json:"platform"`
	CoverImageURL *string   `json:"cover_image_url,omitempty"`
}

// AchievementUnlockedPayload is the data of game.achievement_unlocked events.
type AchievementUnlockedPayload struct {
	LibraryID       uuid.UUID `json:"library_id"`
	GameID          uuid.UUID `json:"game_id"`
	GameTitle       string    `json:"game_title"`
	AchievementName string    `json:"achievement_name"`
	UnlockedAt      time.Time `json:"unlocked_at"`
}

// RateLimitWarningPayload is the data of system.rate_limit_warning events,
// emitted when a platform budget crosses its buffer threshold.
type RateLimitWarningPayload struct {
	Platform   string  `json:"platform"`
	UsageRatio float64 `json:"usage_ratio"`
	DelayMs    int64   `json:"delay_ms"`
	Message    string  `json:"message"`
}

// NotificationPayload is the data of system.notification events.
type NotificationPayload struct {
	Severity string `json:"severity"` // info, warning, error
	Title    string `json:"title"`
	Message  string `json:"message"`
}
