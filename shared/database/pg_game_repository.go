package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgGameRepository implements GameRepository
var _ interfaces.GameRepository = (*pgGameRepository)(nil)

const gameColumns = `
        game_id, title, normalized_title, slug, description, release_date, developer, publisher,
        genres, tags, platforms_available, esrb_rating, esrb_descriptors, pegi_rating,
        metacritic_score, steam_score, cover_image_url, screenshots, videos,
        steam_appid, gog_id, epic_id, xbox_id, igdb_id,
        playtime_main_hours, playtime_completionist_hours, created_at, updated_at`

const (
	createGameQuery = `
        INSERT INTO games (title, normalized_title, slug, description, release_date, developer, publisher,
                           genres, tags, platforms_available, esrb_rating, esrb_descriptors, pegi_rating,
                           metacritic_score, steam_score, cover_image_url, screenshots, videos,
                           steam_appid, gog_id, epic_id, xbox_id, igdb_id,
                           playtime_main_hours, playtime_completionist_hours)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
                $19, $20, $21, $22, $23, $24, $25)
        RETURNING game_id, created_at, updated_at`

	updateGameQuery = `
        UPDATE games
        SET title = $2, normalized_title = $3, description = $4, release_date = $5,
            developer = $6, publisher = $7, genres = $8, tags = $9, platforms_available = $10,
            esrb_rating = $11, esrb_descriptors = $12, pegi_rating = $13,
            metacritic_score = $14, steam_score = $15, cover_image_url = $16,
            screenshots = $17, videos = $18,
            steam_appid = $19, gog_id = $20, epic_id = $21, xbox_id = $22, igdb_id = $23,
            playtime_main_hours = $24, playtime_completionist_hours = $25,
            updated_at = NOW()
        WHERE game_id = $1`

	getGameByIDQuery = `SELECT` + gameColumns + ` FROM games WHERE game_id = $1`

	findGameBySteamAppIDQuery = `SELECT` + gameColumns + ` FROM games WHERE steam_appid = $1`

	findGamesByNormalizedTitleQuery = `SELECT` + gameColumns + ` FROM games WHERE normalized_title = $1`

	slugExistsQuery = `SELECT EXISTS (SELECT 1 FROM games WHERE slug = $1)`

	findTitleCandidatesQuery = `
        SELECT` + gameColumns + `
        FROM games
        WHERE normalized_title % $1
        ORDER BY similarity(normalized_title, $1) DESC
        LIMIT $2`
)

type pgGameRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgGameRepository creates a new PostgreSQL-backed GameRepository.
func NewPgGameRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.GameRepository {
	return &pgGameRepository{
		db:     db,
		logger: logger.Named("PgGameRepo"),
	}
}

func (r *pgGameRepository) Create(ctx context.Context, querier interfaces.DBTX, game *models.Game) error {
	err := querier.QueryRow(ctx, createGameQuery,
		game.Title, game.NormalizedTitle, game.Slug, game.Description, game.ReleaseDate,
		game.Developer, game.Publisher,
		pq.Array(game.Genres), pq.Array(game.Tags), pq.Array(game.PlatformsAvailable),
		game.ESRBRating, pq.Array(game.ESRBDescriptors), game.PEGIRating,
		game.MetacriticScore, game.SteamScore, game.CoverImageURL,
		pq.Array(game.Screenshots), pq.Array(game.Videos),
		game.SteamAppID, game.GOGID, game.EpicID, game.XboxID, game.IGDBID,
		game.PlaytimeMainHours, game.PlaytimeCompletionistHours,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// A concurrent worker inserted the same external id or slug
			// between resolution and insert; the caller re-resolves.
			r.logger.Warn("Concurrent insert of the same game",
				zap.String("title", game.Title), zap.String("constraint", pgErr.ConstraintName))
			return models.ErrGameAlreadyExists
		}
		r.logger.Error("Failed to create game", zap.Error(err), zap.String("title", game.Title))
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *pgGameRepository) Update(ctx context.Context, querier interfaces.DBTX, game *models.Game) error {
	tag, err := querier.Exec(ctx, updateGameQuery,
		game.ID, game.Title, game.NormalizedTitle, game.Description, game.ReleaseDate,
		game.Developer, game.Publisher,
		pq.Array(game.Genres), pq.Array(game.Tags), pq.Array(game.PlatformsAvailable),
		game.ESRBRating, pq.Array(game.ESRBDescriptors), game.PEGIRating,
		game.MetacriticScore, game.SteamScore, game.CoverImageURL,
		pq.Array(game.Screenshots), pq.Array(game.Videos),
		game.SteamAppID, game.GOGID, game.EpicID, game.XboxID, game.IGDBID,
		game.PlaytimeMainHours, game.PlaytimeCompletionistHours,
	)
	if err != nil {
		r.logger.Error("Failed to update game", zap.Error(err), zap.String("gameID", game.ID.String()))
		return fmt.Errorf("failed to update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrGameNotFound
	}
	return nil
}

func (r *pgGameRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	err := pgxscan.Get(ctx, querier, &game, getGameByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to get game by id", zap.Error(err), zap.String("gameID", id.String()))
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}
	return &game, nil
}

func (r *pgGameRepository) FindBySteamAppID(ctx context.Context, querier interfaces.DBTX, appID int64) (*models.Game, error) {
	var game models.Game
	err := pgxscan.Get(ctx, querier, &game, findGameBySteamAppIDQuery, appID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to find game by steam appid", zap.Error(err), zap.Int64("appID", appID))
		return nil, fmt.Errorf("failed to find game by steam appid: %w", err)
	}
	return &game, nil
}

func (r *pgGameRepository) FindByExternalID(ctx context.Context, querier interfaces.DBTX, platformCode, externalID string) (*models.Game, error) {
	var column string
	switch platformCode {
	case "gog":
		column = "gog_id"
	case "epic":
		column = "epic_id"
	case "xbox":
		column = "xbox_id"
	case "igdb":
		column = "igdb_id"
	default:
		return nil, fmt.Errorf("platform %s has no external id column", platformCode)
	}

	query := `SELECT` + gameColumns + ` FROM games WHERE ` + column + ` = $1`
	var game models.Game
	err := pgxscan.Get(ctx, querier, &game, query, externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to find game by external id", zap.Error(err),
			zap.String("platform", platformCode), zap.String("externalID", externalID))
		return nil, fmt.Errorf("failed to find game by %s: %w", column, err)
	}
	return &game, nil
}

func (r *pgGameRepository) FindByNormalizedTitle(ctx context.Context, querier interfaces.DBTX, normalizedTitle string) ([]models.Game, error) {
	var games []models.Game
	if err := pgxscan.Select(ctx, querier, &games, findGamesByNormalizedTitleQuery, normalizedTitle); err != nil {
		r.logger.Error("Failed to find games by normalized title", zap.Error(err), zap.String("normalizedTitle", normalizedTitle))
		return nil, fmt.Errorf("failed to find games by normalized title: %w", err)
	}
	return games, nil
}

func (r *pgGameRepository) SlugExists(ctx context.Context, querier interfaces.DBTX, slug string) (bool, error) {
	var exists bool
	if err := querier.QueryRow(ctx, slugExistsQuery, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

func (r *pgGameRepository) FindTitleCandidates(ctx context.Context, querier interfaces.DBTX, normalizedTitle string, limit int) ([]models.Game, error) {
	var games []models.Game
	if err := pgxscan.Select(ctx, querier, &games, findTitleCandidatesQuery, normalizedTitle, limit); err != nil {
		r.logger.Error("Failed to find title candidates", zap.Error(err), zap.String("normalizedTitle", normalizedTitle))
		return nil, fmt.Errorf("failed to find title candidates: %w", err)
	}
	return games, nil
}

func (r *pgGameRepository) List(ctx context.Context, querier interfaces.DBTX, filter interfaces.GameFilter) ([]models.Game, int64, error) {
	where, args := buildGameFilter(filter, nil)

	var total int64
	countQuery := `SELECT COUNT(*) FROM games g` + where
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count games", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count games: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM games g%s ORDER BY g.title ASC LIMIT $%d OFFSET $%d`,
		prefixGameColumns("g"), where, len(args)-1, len(args))

	var games []models.Game
	if err := pgxscan.Select(ctx, querier, &games, query, args...); err != nil {
		r.logger.Error("Failed to list games", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list games: %w", err)
	}
	return games, total, nil
}

func (r *pgGameRepository) Search(ctx context.Context, querier interfaces.DBTX, search string, filter interfaces.GameFilter) ([]models.Game, int64, error) {
	args := []interface{}{search}
	where, args := buildGameFilter(filter, args)
	if where == "" {
		where = ` WHERE g.search_vector @@ websearch_to_tsquery('english', $1)`
	} else {
		where += ` AND g.search_vector @@ websearch_to_tsquery('english', $1)`
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM games g` + where
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count search results", zap.Error(err), zap.String("search", search))
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
        SELECT %s
        FROM games g%s
        ORDER BY ts_rank(g.search_vector, websearch_to_tsquery('english', $1)) DESC,
                 g.release_date DESC NULLS LAST,
                 g.title ASC
        LIMIT $%d OFFSET $%d`,
		prefixGameColumns("g"), where, len(args)-1, len(args))

	var games []models.Game
	if err := pgxscan.Select(ctx, querier, &games, query, args...); err != nil {
		r.logger.Error("Failed to search games", zap.Error(err), zap.String("search", search))
		return nil, 0, fmt.Errorf("failed to search games: %w", err)
	}
	return games, total, nil
}

// buildGameFilter renders the WHERE clause shared by List and Search.
// Args already present (e.g. the search term) keep their positions.
func buildGameFilter(filter interfaces.GameFilter, args []interface{}) (string, []interface{}) {
	conds := make([]string, 0, 4)

	if len(filter.Platforms) > 0 {
		args = append(args, pq.Array(filter.Platforms))
		conds = append(conds, fmt.Sprintf("g.platforms_available && $%d", len(args)))
	}
	if len(filter.Genres) > 0 {
		args = append(args, pq.Array(filter.Genres))
		conds = append(conds, fmt.Sprintf("g.genres && $%d", len(args)))
	}
	if filter.MinRating != nil {
		args = append(args, *filter.MinRating)
		conds = append(conds, fmt.Sprintf("(g.metacritic_score >= $%d OR g.steam_score >= $%d)", len(args), len(args)))
	}
	if filter.OwnedOnly && filter.LibraryID != nil {
		args = append(args, *filter.LibraryID)
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM user_games ug WHERE ug.game_id = g.game_id AND ug.library_id = $%d AND ug.owned)", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// prefixGameColumns qualifies the shared column list with a table alias.
func prefixGameColumns(alias string) string {
	cols := strings.Split(gameColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
