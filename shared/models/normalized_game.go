package models

import (
	"encoding/json"
	"time"
)

// RawGame is one platform-shaped library entry, opaque to the sync worker.
// Payload holds the adapter's own DTO; the adapter's Transform knows how
// to read it back.
type RawGame struct {
	PlatformGameID string
	Payload        any
}

// NormalizedGame is the universal shape a platform adapter produces from one
// raw platform entry. It carries only what the source platform natively
// provides; catalog enrichment happens elsewhere.
type NormalizedGame struct {
	PlatformCode    string          `json:"platform_code"`
	PlatformGameID  string          `json:"platform_game_id"`
	Title           string          `json:"title"`
	PlaytimeMinutes int64           `json:"playtime_minutes"`
	LastPlayedAt    *time.Time      `json:"last_played_at,omitempty"`
	IconURL         *string         `json:"icon_url,omitempty"`
	CoverImageURL   *string         `json:"cover_image_url,omitempty"`
	Developer       *string         `json:"developer,omitempty"`
	Publisher       *string         `json:"publisher,omitempty"`
	SteamAppID      *int64          `json:"steam_appid,omitempty"`
	RawData         json.RawMessage `json:"raw_data,omitempty"` // stored opaquely on the user game
}
