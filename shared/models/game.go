package models

import (
	"time"

	"github.com/google/uuid"
)

// ESRBRating mirrors the esrb_rating_enum type in the database.
type ESRBRating string

const (
	ESRBEveryone      ESRBRating = "E"
	ESRBEveryoneTenUp ESRBRating = "E10+"
	ESRBTeen          ESRBRating = "T"
	ESRBMature        ESRBRating = "M"
	ESRBAdultsOnly    ESRBRating = "AO"
	ESRBRatingPending ESRBRating = "RP"
)

// Game is the universal cross-platform catalog entity. Games are shared
// between libraries and are never deleted when a library is removed.
type Game struct {
	ID              uuid.UUID  `json:"id" db:"game_id"`
	Title           string     `json:"title" db:"title"`
	NormalizedTitle string     `json:"normalized_title" db:"normalized_title"`
	Slug            *string    `json:"slug,omitempty" db:"slug"`
	Description     *string    `json:"description,omitempty" db:"description"`
	ReleaseDate     *time.Time `json:"release_date,omitempty" db:"release_date"`
	Developer       *string    `json:"developer,omitempty" db:"developer"`
	Publisher       *string    `json:"publisher,omitempty" db:"publisher"`

	Genres             []string `json:"genres" db:"genres"`
	Tags               []string `json:"tags" db:"tags"`
	PlatformsAvailable []string `json:"platforms_available" db:"platforms_available"`

	ESRBRating      *ESRBRating `json:"esrb_rating,omitempty" db:"esrb_rating"`
	ESRBDescriptors []string    `json:"esrb_descriptors" db:"esrb_descriptors"`
	PEGIRating      *string     `json:"pegi_rating,omitempty" db:"pegi_rating"`

	MetacriticScore *int `json:"metacritic_score,omitempty" db:"metacritic_score"` // 0..100
	SteamScore      *int `json:"steam_score,omitempty" db:"steam_score"`           // 0..100

	CoverImageURL *string  `json:"cover_image_url,omitempty" db:"cover_image_url"`
	Screenshots   []string `json:"screenshots" db:"screenshots"`
	Videos        []string `json:"videos" db:"videos"`

	// External platform identifiers. Stored as separate nullable columns so
	// each can carry a unique index.
	SteamAppID *int64  `json:"steam_appid,omitempty" db:"steam_appid"`
	GOGID      *string `json:"gog_id,omitempty" db:"gog_id"`
	EpicID     *string `json:"epic_id,omitempty" db:"epic_id"`
	XboxID     *string `json:"xbox_id,omitempty" db:"xbox_id"`
	IGDBID     *string `json:"igdb_id,omitempty" db:"igdb_id"`

	PlaytimeMainHours          *float64 `json:"playtime_main_hours,omitempty" db:"playtime_main_hours"`
	PlaytimeCompletionistHours *float64 `json:"playtime_completionist_hours,omitempty" db:"playtime_completionist_hours"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasExternalID reports whether any external platform id is set.
func (g *Game) HasExternalID() bool {
	return g.SteamAppID != nil || g.GOGID != nil || g.EpicID != nil ||
		g.XboxID != nil || g.IGDBID != nil
}
