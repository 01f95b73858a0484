package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchMethod mirrors the match_method_enum type in the database.
type MatchMethod string

const (
	MatchExternalID MatchMethod = "external_id"
	MatchTitleExact MatchMethod = "title_exact"
	MatchTitleFuzzy MatchMethod = "title_fuzzy"
	MatchManual     MatchMethod = "manual"
)

// GameMatch is a weighted undirected edge between two catalog games that
// were recognized as the same title. Orientation convention: PrimaryGameID
// sorts lexicographically before MatchedGameID, so (primary, matched) stays
// unique regardless of insertion order. A self-edge (primary = matched)
// marks a platform listing that was merged into an existing game by title
// matching and awaits human review.
type GameMatch struct {
	ID            uuid.UUID   `json:"id" db:"match_id"`
	PrimaryGameID uuid.UUID   `json:"primary_game_id" db:"primary_game_id"`
	MatchedGameID uuid.UUID   `json:"matched_game_id" db:"matched_game_id"`
	Confidence    float64     `json:"confidence" db:"confidence"` // 0..1
	Method        MatchMethod `json:"method" db:"method"`
	Verified      bool        `json:"verified" db:"verified"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// OrientMatchPair returns the pair ordered by the storage convention.
func OrientMatchPair(a, b uuid.UUID) (primary, matched uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
