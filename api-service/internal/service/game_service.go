package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-library-server/shared/constants"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/messaging"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameDetails is the response of GET /games/{id}: the catalog game plus the
// caller's library-specific attributes when a library scope was given.
type GameDetails struct {
	models.Game
	UserGame *models.UserGame `json:"user_game,omitempty"`
}

// GameService serves the catalog: listing, search and per-library updates.
type GameService interface {
	List(ctx context.Context, filter interfaces.GameFilter) ([]models.Game, int64, error)

	// Search runs weighted full-text search. An empty query degrades to List.
	Search(ctx context.Context, query string, filter interfaces.GameFilter) ([]models.Game, int64, error)

	// Get returns the game, with the user attributes of libraryID when given.
	Get(ctx context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*GameDetails, error)

	// UpdateUserGame applies the user-editable fields of a library's link to
	// a game and emits game_updated to the library room.
	UpdateUserGame(ctx context.Context, libraryID, gameID uuid.UUID, upd models.UserGameUpdate) (*models.UserGame, error)
}

type gameService struct {
	db        interfaces.DBTX
	games     interfaces.GameRepository
	userGames interfaces.UserGameRepository
	libraries interfaces.LibraryRepository
	events    interfaces.EventPublisher
	logger    *zap.Logger
}

// Compile-time check
var _ GameService = (*gameService)(nil)

// NewGameService creates a GameService. events may be nil in tests; the
// game_updated emission is then skipped.
func NewGameService(
	db interfaces.DBTX,
	games interfaces.GameRepository,
	userGames interfaces.UserGameRepository,
	libraries interfaces.LibraryRepository,
	events interfaces.EventPublisher,
	logger *zap.Logger,
) GameService {
	return &gameService{
		db:        db,
		games:     games,
		userGames: userGames,
		libraries: libraries,
		events:    events,
		logger:    logger.Named("GameService"),
	}
}

func (s *gameService) List(ctx context.Context, filter interfaces.GameFilter) ([]models.Game, int64, error) {
	return s.games.List(ctx, s.db, filter)
}

func (s *gameService) Search(ctx context.Context, query string, filter interfaces.GameFilter) ([]models.Game, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.games.List(ctx, s.db, filter)
	}
	return s.games.Search(ctx, s.db, query, filter)
}

func (s *gameService) Get(ctx context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*GameDetails, error) {
	game, err := s.games.GetByID(ctx, s.db, gameID)
	if err != nil {
		return nil, err
	}
	details := &GameDetails{Game: *game}

	if libraryID != nil {
		link, err := s.userGames.GetByLibraryAndGame(ctx, s.db, *libraryID, gameID)
		switch {
		case err == nil:
			details.UserGame = link
		case errors.Is(err, models.ErrGameNotFound):
			// Library does not own this game; the catalog entry alone is fine.
		default:
			return nil, err
		}
	}
	return details, nil
}

func (s *gameService) UpdateUserGame(ctx context.Context, libraryID, gameID uuid.UUID, upd models.UserGameUpdate) (*models.UserGame, error) {
	if err := validateUserGameUpdate(upd); err != nil {
		return nil, err
	}

	lib, err := s.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	link, err := s.userGames.UpdateUserFields(ctx, s.db, libraryID, gameID, upd)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		game, gerr := s.games.GetByID(ctx, s.db, gameID)
		title := ""
		if gerr == nil {
			title = game.Title
		}
		payload := messaging.GameEventPayload{
			LibraryID: libraryID,
			GameID:    gameID,
			Title:     title,
			Platform:  lib.PlatformCode,
		}
		if err := s.events.PublishEvent(ctx, messaging.RoutingKeyGameUpdated, constants.WSEventGameUpdated, payload); err != nil {
			s.logger.Warn("Failed to publish game_updated event", zap.Error(err),
				zap.String("libraryID", libraryID.String()),
				zap.String("gameID", gameID.String()))
		}
	}
	return link, nil
}

func validateUserGameUpdate(upd models.UserGameUpdate) error {
	fields := map[string]string{}
	if upd.GameStatus != nil && !models.ValidGameStatus(*upd.GameStatus) {
		fields["game_status"] = fmt.Sprintf("unknown status %q", *upd.GameStatus)
	}
	if upd.UserRating != nil && (*upd.UserRating < 1 || *upd.UserRating > 5) {
		fields["user_rating"] = "must be between 1 and 5"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
