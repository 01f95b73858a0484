package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// GameMatchRepository defines the interface for cross-platform match edges.
// Edges are undirected; the (primary, matched) pair is stored with
// primaryGameID < matchedGameID so each pair appears exactly once.
type GameMatchRepository interface {
	// Upsert inserts a match edge, or raises the confidence of an existing
	// one when the new confidence is higher. Orientation is normalized here.
	Upsert(ctx context.Context, querier DBTX, match *models.GameMatch) error

	// ListForGame returns every edge touching the given game.
	ListForGame(ctx context.Context, querier DBTX, gameID uuid.UUID) ([]models.GameMatch, error)

	// ConnectedComponent walks match edges from the given game and returns
	// the ids of every transitively matched game, the seed included.
	ConnectedComponent(ctx context.Context, querier DBTX, gameID uuid.UUID) ([]uuid.UUID, error)

	// SetVerified marks an edge as human-confirmed.
	// Returns models.ErrNotFound if the edge does not exist.
	SetVerified(ctx context.Context, querier DBTX, matchID uuid.UUID, verified bool) error
}
