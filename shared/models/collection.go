package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameCollection groups games inside one library. (library_id, name) is
// unique. Smart collections carry a rules document evaluated by clients.
type GameCollection struct {
	ID          uuid.UUID       `json:"id" db:"collection_id"`
	LibraryID   uuid.UUID       `json:"library_id" db:"library_id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Color       *string         `json:"color,omitempty" db:"color"`
	Icon        *string         `json:"icon,omitempty" db:"icon"`
	IsSmart     bool            `json:"is_smart" db:"is_smart"`
	Rules       json.RawMessage `json:"rules,omitempty" db:"rules"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// GamesCount is joined on list queries; not a column.
	GamesCount int `json:"games_count" db:"games_count"`
}

// CollectionGame is the membership row of a game in a collection.
type CollectionGame struct {
	CollectionID uuid.UUID `json:"collection_id" db:"collection_id"`
	GameID       uuid.UUID `json:"game_id" db:"game_id"`
	AddedAt      time.Time `json:"added_at" db:"added_at"`
}
