package models

import (
	"time"

	"github.com/google/uuid"
)

// Achievement is a per-game, per-platform achievement definition.
// (game_id, platform_id, platform_achievement_id) is unique.
type Achievement struct {
	ID                    uuid.UUID `json:"id" db:"achievement_id"`
	GameID                uuid.UUID `json:"game_id" db:"game_id"`
	PlatformID            uuid.UUID `json:"platform_id" db:"platform_id"`
	PlatformAchievementID string    `json:"platform_achievement_id" db:"platform_achievement_id"`
	Title                 string    `json:"title" db:"title"`
	Description           *string   `json:"description,omitempty" db:"description"`
	IconURL               *string   `json:"icon_url,omitempty" db:"icon_url"`
	Points                int       `json:"points" db:"points"`
	RarityPercent         *float64  `json:"rarity_percent,omitempty" db:"rarity_percent"` // 0..100
	Hidden                bool      `json:"hidden" db:"is_hidden"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// PlatformAchievement is one achievement definition as the platform reports
// it, before it is tied to a catalog game.
type PlatformAchievement struct {
	PlatformAchievementID string   `json:"platform_achievement_id"`
	Title                 string   `json:"title"`
	Description           *string  `json:"description,omitempty"`
	IconURL               *string  `json:"icon_url,omitempty"`
	RarityPercent         *float64 `json:"rarity_percent,omitempty"`
	Hidden                bool     `json:"hidden"`
}

// PlayerUnlock is one unlocked achievement as the platform reports it.
type PlayerUnlock struct {
	PlatformAchievementID string    `json:"platform_achievement_id"`
	UnlockedAt            time.Time `json:"unlocked_at"`
}

// UserAchievement records an unlock of an achievement for one user game.
// (user_game_id, achievement_id) is unique.
type UserAchievement struct {
	ID              uuid.UUID `json:"id" db:"user_achievement_id"`
	UserGameID      uuid.UUID `json:"user_game_id" db:"user_game_id"`
	AchievementID   uuid.UUID `json:"achievement_id" db:"achievement_id"`
	UnlockedAt      time.Time `json:"unlocked_at" db:"unlocked_at"`
	ProgressPercent int       `json:"progress_percent" db:"progress_percent"` // 0..100
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
