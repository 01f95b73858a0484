package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameStatus mirrors the game_status_enum type in the database.
type GameStatus string

const (
	GameStatusUnplayed  GameStatus = "unplayed"
	GameStatusPlaying   GameStatus = "playing"
	GameStatusCompleted GameStatus = "completed"
	GameStatusAbandoned GameStatus = "abandoned"
	GameStatusWishlist  GameStatus = "wishlist"
)

// ValidGameStatus reports whether s is one of the recognized statuses.
func ValidGameStatus(s GameStatus) bool {
	switch s {
	case GameStatusUnplayed, GameStatusPlaying, GameStatusCompleted,
		GameStatusAbandoned, GameStatusWishlist:
		return true
	}
	return false
}

// UserGame links a library to a catalog game and carries the per-library
// ownership, playtime and personal attributes. (library_id, game_id) is
// unique.
type UserGame struct {
	ID             uuid.UUID `json:"id" db:"user_game_id"`
	LibraryID      uuid.UUID `json:"library_id" db:"library_id"`
	GameID         uuid.UUID `json:"game_id" db:"game_id"`
	PlatformGameID *string   `json:"platform_game_id,omitempty" db:"platform_game_id"`

	Owned   bool       `json:"owned" db:"owned"`
	OwnedAt *time.Time `json:"owned_at,omitempty" db:"owned_at"`

	TotalPlaytimeMinutes int64      `json:"total_playtime_minutes" db:"total_playtime_minutes"`
	FirstPlayedAt        *time.Time `json:"first_played_at,omitempty" db:"first_played_at"`
	LastPlayedAt         *time.Time `json:"last_played_at,omitempty" db:"last_played_at"`

	GameStatus GameStatus `json:"game_status" db:"game_status"`
	UserRating *int       `json:"user_rating,omitempty" db:"user_rating"` // 1..5
	UserNotes  *string    `json:"user_notes,omitempty" db:"user_notes"`
	IsFavorite bool       `json:"is_favorite" db:"is_favorite"`

	PlatformData json.RawMessage `json:"platform_data,omitempty" db:"platform_data"` // opaque platform payload

	LastSyncedAt time.Time `json:"last_synced_at" db:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserGameUpdate carries the client-editable fields of a UserGame. Nil means
// "leave unchanged".
type UserGameUpdate struct {
	GameStatus *GameStatus `json:"game_status,omitempty"`
	UserRating *int        `json:"user_rating,omitempty"`
	UserNotes  *string     `json:"user_notes,omitempty"`
	IsFavorite *bool       `json:"is_favorite,omitempty"`
}
