package database

import (
	"context"
	"fmt"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgGameMatchRepository implements GameMatchRepository
var _ interfaces.GameMatchRepository = (*pgGameMatchRepository)(nil)

const (
	upsertGameMatchQuery = `
        INSERT INTO game_matches AS m (primary_game_id, matched_game_id, confidence, method, verified)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (primary_game_id, matched_game_id) DO UPDATE SET
            confidence = EXCLUDED.confidence,
            method     = EXCLUDED.method
        WHERE EXCLUDED.confidence > m.confidence`

	listMatchesForGameQuery = `
        SELECT match_id, primary_game_id, matched_game_id, confidence, method, verified, created_at
        FROM game_matches
        WHERE primary_game_id = $1 OR matched_game_id = $1
        ORDER BY confidence DESC`

	// Walks the undirected edge set from a seed game. Edges are stored
	// oriented, so each step looks at both columns.
	connectedComponentQuery = `
        WITH RECURSIVE component (game_id) AS (
            SELECT $1::uuid
            UNION
            SELECT CASE
                       WHEN m.primary_game_id = c.game_id THEN m.matched_game_id
                       ELSE m.primary_game_id
                   END
            FROM game_matches m
            JOIN component c ON c.game_id IN (m.primary_game_id, m.matched_game_id)
        )
        SELECT game_id FROM component`

	setMatchVerifiedQuery = `UPDATE game_matches SET verified = $2 WHERE match_id = $1`
)

type pgGameMatchRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgGameMatchRepository creates a new PostgreSQL-backed GameMatchRepository.
func NewPgGameMatchRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.GameMatchRepository {
	return &pgGameMatchRepository{
		db:     db,
		logger: logger.Named("PgGameMatchRepo"),
	}
}

func (r *pgGameMatchRepository) Upsert(ctx context.Context, querier interfaces.DBTX, match *models.GameMatch) error {
	primary, matched := models.OrientMatchPair(match.PrimaryGameID, match.MatchedGameID)
	match.PrimaryGameID, match.MatchedGameID = primary, matched

	_, err := querier.Exec(ctx, upsertGameMatchQuery,
		match.PrimaryGameID, match.MatchedGameID, match.Confidence, match.Method, match.Verified,
	)
	if err != nil {
		r.logger.Error("Failed to upsert game match", zap.Error(err),
			zap.String("primaryGameID", match.PrimaryGameID.String()),
			zap.String("matchedGameID", match.MatchedGameID.String()))
		return fmt.Errorf("failed to upsert game match: %w", err)
	}
	return nil
}

func (r *pgGameMatchRepository) ListForGame(ctx context.Context, querier interfaces.DBTX, gameID uuid.UUID) ([]models.GameMatch, error) {
	var matches []models.GameMatch
	if err := pgxscan.Select(ctx, querier, &matches, listMatchesForGameQuery, gameID); err != nil {
		r.logger.Error("Failed to list game matches", zap.Error(err), zap.String("gameID", gameID.String()))
		return nil, fmt.Errorf("failed to list game matches: %w", err)
	}
	return matches, nil
}

func (r *pgGameMatchRepository) ConnectedComponent(ctx context.Context, querier interfaces.DBTX, gameID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := querier.Query(ctx, connectedComponentQuery, gameID)
	if err != nil {
		r.logger.Error("Failed to walk match component", zap.Error(err), zap.String("gameID", gameID.String()))
		return nil, fmt.Errorf("failed to walk match component: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan component row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read component rows: %w", err)
	}
	return ids, nil
}

func (r *pgGameMatchRepository) SetVerified(ctx context.Context, querier interfaces.DBTX, matchID uuid.UUID, verified bool) error {
	tag, err := querier.Exec(ctx, setMatchVerifiedQuery, matchID, verified)
	if err != nil {
		r.logger.Error("Failed to set match verified", zap.Error(err), zap.String("matchID", matchID.String()))
		return fmt.Errorf("failed to set match verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
