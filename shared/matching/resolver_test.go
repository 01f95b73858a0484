package matching

import (
	"context"
	"testing"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGameRepo is an in-memory GameRepository for resolver tests.
type fakeGameRepo struct {
	games []*models.Game
}

func (f *fakeGameRepo) Create(_ context.Context, _ interfaces.DBTX, game *models.Game) error {
	game.ID = uuid.New()
	f.games = append(f.games, game)
	return nil
}

func (f *fakeGameRepo) Update(_ context.Context, _ interfaces.DBTX, game *models.Game) error {
	for i, g := range f.games {
		if g.ID == game.ID {
			f.games[i] = game
			return nil
		}
	}
	return models.ErrGameNotFound
}

func (f *fakeGameRepo) GetByID(_ context.Context, _ interfaces.DBTX, id uuid.UUID) (*models.Game, error) {
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, models.ErrGameNotFound
}

func (f *fakeGameRepo) FindBySteamAppID(_ context.Context, _ interfaces.DBTX, appID int64) (*models.Game, error) {
	for _, g := range f.games {
		if g.SteamAppID != nil && *g.SteamAppID == appID {
			return g, nil
		}
	}
	return nil, models.ErrGameNotFound
}

func (f *fakeGameRepo) FindByExternalID(_ context.Context, _ interfaces.DBTX, platformCode, externalID string) (*models.Game, error) {
	for _, g := range f.games {
		if id := externalID2(g, platformCode); id != nil && *id == externalID {
			return g, nil
		}
	}
	return nil, models.ErrGameNotFound
}

func externalID2(g *models.Game, platformCode string) *string {
	switch platformCode {
	case "gog":
		return g.GOGID
	case "epic":
		return g.EpicID
	case "xbox":
		return g.XboxID
	}
	return nil
}

func (f *fakeGameRepo) FindByNormalizedTitle(_ context.Context, _ interfaces.DBTX, normalizedTitle string) ([]models.Game, error) {
	var out []models.Game
	for _, g := range f.games {
		if g.NormalizedTitle == normalizedTitle {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGameRepo) SlugExists(_ context.Context, _ interfaces.DBTX, _ string) (bool, error) {
	return false, nil
}

func (f *fakeGameRepo) FindTitleCandidates(_ context.Context, _ interfaces.DBTX, _ string, limit int) ([]models.Game, error) {
	// The trigram pre-filter is approximated by returning everything;
	// the resolver scores candidates itself.
	var out []models.Game
	for _, g := range f.games {
		out = append(out, *g)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeGameRepo) List(_ context.Context, _ interfaces.DBTX, _ interfaces.GameFilter) ([]models.Game, int64, error) {
	return nil, 0, nil
}

func (f *fakeGameRepo) Search(_ context.Context, _ interfaces.DBTX, _ string, _ interfaces.GameFilter) ([]models.Game, int64, error) {
	return nil, 0, nil
}

// fakeMatchRepo records Upsert calls.
type fakeMatchRepo struct {
	matches []models.GameMatch
}

func (f *fakeMatchRepo) Upsert(_ context.Context, _ interfaces.DBTX, match *models.GameMatch) error {
	f.matches = append(f.matches, *match)
	return nil
}

func (f *fakeMatchRepo) ListForGame(_ context.Context, _ interfaces.DBTX, _ uuid.UUID) ([]models.GameMatch, error) {
	return f.matches, nil
}

func (f *fakeMatchRepo) ConnectedComponent(_ context.Context, _ interfaces.DBTX, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeMatchRepo) SetVerified(_ context.Context, _ interfaces.DBTX, _ uuid.UUID, _ bool) (err error) {
	return nil
}

func ptr[T any](v T) *T { return &v }

func witcherCatalog() *fakeGameRepo {
	appID := int64(292030)
	return &fakeGameRepo{games: []*models.Game{{
		ID:                 uuid.New(),
		Title:              "The Witcher 3: Wild Hunt",
		NormalizedTitle:    "the witcher 3 wild hunt",
		SteamAppID:         &appID,
		Publisher:          ptr("CD PROJEKT RED"),
		PlatformsAvailable: []string{"steam"},
	}}}
}

func TestResolveByExternalID(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "steam",
		PlatformGameID: "292030",
		Title:          "The Witcher 3: Wild Hunt",
		SteamAppID:     ptr(int64(292030)),
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, models.MatchExternalID, res.Method)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, games.games[0].ID, res.Game.ID)
	assert.Empty(t, matches.matches, "external id hits need no review")
}

func TestResolveTitleExactMergesEdition(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	// GOG listing of the GOTY edition, no shared external id.
	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "gog",
		PlatformGameID: "1495134320",
		Title:          "The Witcher 3 - Wild Hunt (Game of the Year Edition)",
	})
	require.NoError(t, err)
	assert.False(t, res.Created, "no new catalog row expected")
	assert.Equal(t, models.MatchTitleExact, res.Method)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, games.games[0].ID, res.Game.ID)

	require.Len(t, matches.matches, 1)
	assert.Equal(t, models.MatchTitleExact, matches.matches[0].Method)
	assert.False(t, matches.matches[0].Verified)

	// The GOG identity was absorbed into the existing game.
	require.NotNil(t, res.Game.GOGID)
	assert.Equal(t, "1495134320", *res.Game.GOGID)
	assert.Contains(t, res.Game.PlatformsAvailable, "gog")
}

func TestResolveTitleFuzzyRequiresCompanyAgreement(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	// Near-identical title but a different publisher on both sides: no match.
	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "epic",
		PlatformGameID: "witcher3-like",
		Title:          "The Witcher 3: Wildhunt",
		Publisher:      ptr("Someone Else"),
	})
	require.NoError(t, err)
	assert.True(t, res.Created, "company mismatch must produce a new game")
	assert.Len(t, games.games, 2)
}

func TestResolveTitleFuzzyMatches(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "epic",
		PlatformGameID: "witcher3-epic",
		Title:          "The Witcher 3: Wildhunt",
		Publisher:      ptr("CD PROJEKT RED"),
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, models.MatchTitleFuzzy, res.Method)
	assert.GreaterOrEqual(t, res.Confidence, FuzzyThreshold)
	require.Len(t, matches.matches, 1)
	assert.Equal(t, models.MatchTitleFuzzy, matches.matches[0].Method)
}

func TestResolveCreatesNewGame(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "steam",
		PlatformGameID: "1145360",
		Title:          "Hades",
		SteamAppID:     ptr(int64(1145360)),
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "hades", res.Game.NormalizedTitle)
	require.NotNil(t, res.Game.SteamAppID)
	assert.EqualValues(t, 1145360, *res.Game.SteamAppID)
	assert.Empty(t, matches.matches)
}

func TestResolveConflictingSteamIDCreatesNewGame(t *testing.T) {
	games := witcherCatalog()
	matches := &fakeMatchRepo{}
	r := NewResolver(games, matches, zap.NewNop())

	// Same title, different Steam app id: distinct games that happen to
	// collide on title.
	res, err := r.Resolve(context.Background(), nil, &models.NormalizedGame{
		PlatformCode:   "steam",
		PlatformGameID: "999999",
		Title:          "The Witcher 3: Wild Hunt",
		SteamAppID:     ptr(int64(999999)),
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, games.games, 2)
	assert.Empty(t, matches.matches)
}

var _ interfaces.GameRepository = (*fakeGameRepo)(nil)
var _ interfaces.GameMatchRepository = (*fakeMatchRepo)(nil)
