package matching

import (
	"context"
	"errors"
	"fmt"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"go.uber.org/zap"
)

// FuzzyThreshold is the minimal similarity ratio for a fuzzy title match.
const FuzzyThreshold = 0.92

// fuzzyCandidateLimit caps how many trigram candidates are scored per title.
const fuzzyCandidateLimit = 5

// Resolution is the outcome of resolving one platform listing against the
// catalog.
type Resolution struct {
	Game       *models.Game
	Created    bool // a new catalog row was inserted
	Method     models.MatchMethod
	Confidence float64
}

// Resolver decides which catalog game an incoming platform listing is,
// trying external ids, exact normalized titles and fuzzy titles in that
// order before inserting a new game.
type Resolver struct {
	games   interfaces.GameRepository
	matches interfaces.GameMatchRepository
	logger  *zap.Logger
}

// NewResolver creates a Resolver over the given repositories.
func NewResolver(games interfaces.GameRepository, matches interfaces.GameMatchRepository, logger *zap.Logger) *Resolver {
	return &Resolver{
		games:   games,
		matches: matches,
		logger:  logger.Named("GameResolver"),
	}
}

// Resolve finds or creates the catalog game for ng. Title matches (exact and
// fuzzy) additionally record an unverified GameMatch row for human review.
func (r *Resolver) Resolve(ctx context.Context, querier interfaces.DBTX, ng *models.NormalizedGame) (*Resolution, error) {
	// 1. External id: authoritative, no review needed.
	game, err := r.findByExternalID(ctx, querier, ng)
	if err != nil {
		return nil, err
	}
	if game != nil {
		return &Resolution{Game: game, Method: models.MatchExternalID, Confidence: 1.0}, nil
	}

	normalized := NormalizeTitle(ng.Title)

	// 2. Exact normalized title.
	candidates, err := r.games.FindByNormalizedTitle(ctx, querier, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up title %q: %w", normalized, err)
	}
	for i := range candidates {
		if r.adopt(ctx, querier, &candidates[i], ng) {
			if err := r.recordMatch(ctx, querier, &candidates[i], models.MatchTitleExact, 0.95); err != nil {
				return nil, err
			}
			return &Resolution{Game: &candidates[i], Method: models.MatchTitleExact, Confidence: 0.95}, nil
		}
	}

	// 3. Fuzzy title over trigram candidates.
	best, ratio, err := r.findFuzzy(ctx, querier, ng, normalized)
	if err != nil {
		return nil, err
	}
	if best != nil && r.adopt(ctx, querier, best, ng) {
		if err := r.recordMatch(ctx, querier, best, models.MatchTitleFuzzy, ratio); err != nil {
			return nil, err
		}
		return &Resolution{Game: best, Method: models.MatchTitleFuzzy, Confidence: ratio}, nil
	}

	// 4. Nothing matched: new catalog game.
	game = r.newGame(ng, normalized)
	if err := r.games.Create(ctx, querier, game); err != nil {
		return nil, fmt.Errorf("failed to create game %q: %w", ng.Title, err)
	}
	r.logger.Debug("New catalog game created",
		zap.String("title", ng.Title), zap.String("gameID", game.ID.String()))
	return &Resolution{Game: game, Created: true}, nil
}

func (r *Resolver) findByExternalID(ctx context.Context, querier interfaces.DBTX, ng *models.NormalizedGame) (*models.Game, error) {
	var (
		game *models.Game
		err  error
	)
	if ng.SteamAppID != nil {
		game, err = r.games.FindBySteamAppID(ctx, querier, *ng.SteamAppID)
	} else {
		game, err = r.games.FindByExternalID(ctx, querier, ng.PlatformCode, ng.PlatformGameID)
	}
	if err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up external id for %q: %w", ng.Title, err)
	}
	return game, nil
}

func (r *Resolver) findFuzzy(ctx context.Context, querier interfaces.DBTX, ng *models.NormalizedGame, normalized string) (*models.Game, float64, error) {
	candidates, err := r.games.FindTitleCandidates(ctx, querier, normalized, fuzzyCandidateLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find fuzzy candidates for %q: %w", normalized, err)
	}

	var (
		best      *models.Game
		bestRatio float64
	)
	for i := range candidates {
		ratio := SimilarityRatio(normalized, candidates[i].NormalizedTitle)
		if ratio < FuzzyThreshold || ratio <= bestRatio {
			continue
		}
		if !companiesAgree(ng, &candidates[i]) {
			continue
		}
		best = &candidates[i]
		bestRatio = ratio
	}
	return best, bestRatio, nil
}

// companiesAgree reports whether the listing and candidate share a publisher
// or developer. Fields missing on either side do not veto the match.
func companiesAgree(ng *models.NormalizedGame, game *models.Game) bool {
	pubComparable := ng.Publisher != nil && game.Publisher != nil
	devComparable := ng.Developer != nil && game.Developer != nil
	if !pubComparable && !devComparable {
		return true
	}
	if pubComparable && *ng.Publisher == *game.Publisher {
		return true
	}
	if devComparable && *ng.Developer == *game.Developer {
		return true
	}
	return false
}

// adopt merges the listing's platform identity into an existing catalog
// game. It fails (returns false) when the game already carries a different
// id for the same platform, which means the titles collide but the games
// are distinct.
func (r *Resolver) adopt(ctx context.Context, querier interfaces.DBTX, game *models.Game, ng *models.NormalizedGame) bool {
	if ng.SteamAppID != nil {
		if game.SteamAppID != nil && *game.SteamAppID != *ng.SteamAppID {
			return false
		}
		game.SteamAppID = ng.SteamAppID
	} else if conflict := externalIDConflict(game, ng); conflict {
		return false
	} else {
		setExternalID(game, ng.PlatformCode, ng.PlatformGameID)
	}

	if !contains(game.PlatformsAvailable, ng.PlatformCode) {
		game.PlatformsAvailable = append(game.PlatformsAvailable, ng.PlatformCode)
	}
	if game.CoverImageURL == nil && ng.CoverImageURL != nil {
		game.CoverImageURL = ng.CoverImageURL
	}
	if game.Developer == nil && ng.Developer != nil {
		game.Developer = ng.Developer
	}
	if game.Publisher == nil && ng.Publisher != nil {
		game.Publisher = ng.Publisher
	}

	if err := r.games.Update(ctx, querier, game); err != nil {
		r.logger.Warn("Failed to absorb platform identity into game",
			zap.Error(err), zap.String("gameID", game.ID.String()))
		return false
	}
	return true
}

func externalIDConflict(game *models.Game, ng *models.NormalizedGame) bool {
	existing := externalID(game, ng.PlatformCode)
	return existing != nil && *existing != ng.PlatformGameID
}

func externalID(game *models.Game, platformCode string) *string {
	switch platformCode {
	case "gog":
		return game.GOGID
	case "epic":
		return game.EpicID
	case "xbox":
		return game.XboxID
	default:
		return nil
	}
}

func setExternalID(game *models.Game, platformCode, id string) {
	switch platformCode {
	case "gog":
		game.GOGID = &id
	case "epic":
		game.EpicID = &id
	case "xbox":
		game.XboxID = &id
	}
}

// recordMatch inserts the unverified review marker. A self-edge is used
// because the listing was merged into the game rather than inserted as its
// own row.
func (r *Resolver) recordMatch(ctx context.Context, querier interfaces.DBTX, game *models.Game, method models.MatchMethod, confidence float64) error {
	match := &models.GameMatch{
		PrimaryGameID: game.ID,
		MatchedGameID: game.ID,
		Confidence:    confidence,
		Method:        method,
		Verified:      false,
	}
	if err := r.matches.Upsert(ctx, querier, match); err != nil {
		return fmt.Errorf("failed to record game match: %w", err)
	}
	return nil
}

func (r *Resolver) newGame(ng *models.NormalizedGame, normalized string) *models.Game {
	game := &models.Game{
		Title:              ng.Title,
		NormalizedTitle:    normalized,
		Developer:          ng.Developer,
		Publisher:          ng.Publisher,
		CoverImageURL:      ng.CoverImageURL,
		PlatformsAvailable: []string{ng.PlatformCode},
		Genres:             []string{},
		Tags:               []string{},
		ESRBDescriptors:    []string{},
		Screenshots:        []string{},
		Videos:             []string{},
	}
	if ng.SteamAppID != nil {
		game.SteamAppID = ng.SteamAppID
	} else {
		setExternalID(game, ng.PlatformCode, ng.PlatformGameID)
	}
	return game
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
