package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"game-library-server/migrations"
	"game-library-server/pkg/migration"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/matching"
	"game-library-server/shared/models"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type PgRepositoriesSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool

	platforms  interfaces.PlatformRepository
	libraries  interfaces.LibraryRepository
	games      interfaces.GameRepository
	userGames  interfaces.UserGameRepository
	operations interfaces.SyncOperationRepository
}

func (s *PgRepositoriesSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("library-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, s.pool, zap.NewNop())
	require.NoError(s.T(), migrator.Up(), "Failed to apply migrations")

	logger := zap.NewNop()
	s.platforms = NewPgPlatformRepository(s.pool, logger)
	s.libraries = NewPgLibraryRepository(s.pool, logger)
	s.games = NewPgGameRepository(s.pool, logger)
	s.userGames = NewPgUserGameRepository(s.pool, logger)
	s.operations = NewPgSyncOperationRepository(s.pool, logger)
}

func (s *PgRepositoriesSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// newLibrary creates a library on the seeded steam platform with a unique
// user identifier so tests do not interfere with each other.
func (s *PgRepositoriesSuite) newLibrary() *models.UserLibrary {
	t := s.T()
	t.Helper()

	steam, err := s.platforms.GetByCode(s.ctx, "steam")
	require.NoError(t, err)

	library := &models.UserLibrary{
		PlatformID:     steam.ID,
		UserIdentifier: fmt.Sprintf("7656119%010d", time.Now().UnixNano()%1e10),
		DisplayName:    "Integration Library",
		SyncEnabled:    true,
	}
	require.NoError(t, s.libraries.Create(s.ctx, library))
	return library
}

func (s *PgRepositoriesSuite) newGame(title string, appID int64) *models.Game {
	t := s.T()
	t.Helper()

	game := &models.Game{
		Title:           title,
		NormalizedTitle: matching.NormalizeTitle(title),
		SteamAppID:      &appID,
		Genres:          []string{"RPG"},
	}
	require.NoError(t, s.games.Create(s.ctx, s.pool, game))
	return game
}

func (s *PgRepositoriesSuite) TestPlatformsSeeded() {
	t := s.T()

	platforms, err := s.platforms.List(s.ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(platforms), 6)

	steam, err := s.platforms.GetByCode(s.ctx, "steam")
	require.NoError(t, err)
	require.True(t, steam.APIAvailable)

	_, err = s.platforms.GetByCode(s.ctx, "itch")
	require.True(t, errors.Is(err, models.ErrPlatformNotFound))
}

func (s *PgRepositoriesSuite) TestLibraryLifecycle() {
	t := s.T()
	library := s.newLibrary()
	require.NotEqual(t, uuid.Nil, library.ID)
	require.Equal(t, models.SyncStatusPending, library.SyncStatus)

	// Same platform and user identifier violates the unique constraint.
	dup := &models.UserLibrary{
		PlatformID:     library.PlatformID,
		UserIdentifier: library.UserIdentifier,
		DisplayName:    "Duplicate",
	}
	err := s.libraries.Create(s.ctx, dup)
	require.True(t, errors.Is(err, models.ErrLibraryAlreadyExists))

	got, err := s.libraries.GetByID(s.ctx, library.ID)
	require.NoError(t, err)
	require.Equal(t, "steam", got.PlatformCode, "platform code is joined in")

	name := "Renamed"
	require.NoError(t, s.libraries.Update(s.ctx, library.ID, &name, nil, nil))

	now := time.Now().UTC()
	require.NoError(t, s.libraries.SetSyncStatus(s.ctx, library.ID, models.SyncStatusCompleted, nil, &now))

	got, err = s.libraries.GetByID(s.ctx, library.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.DisplayName)
	require.Equal(t, models.SyncStatusCompleted, got.SyncStatus)
	require.NotNil(t, got.LastSyncAt)

	require.NoError(t, s.libraries.Delete(s.ctx, library.ID))
	_, err = s.libraries.GetByID(s.ctx, library.ID)
	require.True(t, errors.Is(err, models.ErrLibraryNotFound))
	require.True(t, errors.Is(s.libraries.Delete(s.ctx, library.ID), models.ErrLibraryNotFound))
}

func (s *PgRepositoriesSuite) TestCreateLibraryUnknownPlatform() {
	err := s.libraries.Create(s.ctx, &models.UserLibrary{
		PlatformID:     uuid.New(),
		UserIdentifier: "nobody",
		DisplayName:    "Orphan",
	})
	require.True(s.T(), errors.Is(err, models.ErrPlatformNotFound))
}

func (s *PgRepositoriesSuite) TestGameExternalIDLookup() {
	t := s.T()
	appID := time.Now().UnixNano() % 1e9
	game := s.newGame("Half-Life 3", appID)

	found, err := s.games.FindBySteamAppID(s.ctx, s.pool, appID)
	require.NoError(t, err)
	require.Equal(t, game.ID, found.ID)

	gogID := fmt.Sprintf("gog-%d", appID)
	game.GOGID = &gogID
	require.NoError(t, s.games.Update(s.ctx, s.pool, game))
	byExternal, err := s.games.FindByExternalID(s.ctx, s.pool, "gog", gogID)
	require.NoError(t, err)
	require.Equal(t, game.ID, byExternal.ID)

	_, err = s.games.FindBySteamAppID(s.ctx, s.pool, appID+1)
	require.True(t, errors.Is(err, models.ErrGameNotFound))

	// A second insert with the same steam appid hits the partial unique index.
	err = s.games.Create(s.ctx, s.pool, &models.Game{
		Title:           "Half-Life 3 (duplicate)",
		NormalizedTitle: matching.NormalizeTitle("Half-Life 3 (duplicate)"),
		SteamAppID:      &appID,
	})
	require.True(t, errors.Is(err, models.ErrGameAlreadyExists))
}

func (s *PgRepositoriesSuite) TestUserGameUpsertOutcomes() {
	t := s.T()
	library := s.newLibrary()
	game := s.newGame("Disco Elysium", time.Now().UnixNano()%1e9)

	platformGameID := "632470"
	row := &models.UserGame{
		LibraryID:            library.ID,
		GameID:               game.ID,
		PlatformGameID:       &platformGameID,
		Owned:                true,
		TotalPlaytimeMinutes: 120,
		GameStatus:           models.GameStatusPlaying,
	}

	outcome, err := s.userGames.Upsert(s.ctx, s.pool, row)
	require.NoError(t, err)
	require.Equal(t, interfaces.UpsertAdded, outcome)

	// Identical snapshot only refreshes last_synced_at.
	again := *row
	outcome, err = s.userGames.Upsert(s.ctx, s.pool, &again)
	require.NoError(t, err)
	require.Equal(t, interfaces.UpsertUnchanged, outcome)

	// Playtime moved on the platform.
	again.TotalPlaytimeMinutes = 240
	outcome, err = s.userGames.Upsert(s.ctx, s.pool, &again)
	require.NoError(t, err)
	require.Equal(t, interfaces.UpsertUpdated, outcome)

	got, err := s.userGames.GetByLibraryAndGame(s.ctx, s.pool, library.ID, game.ID)
	require.NoError(t, err)
	require.EqualValues(t, 240, got.TotalPlaytimeMinutes)
	require.Equal(t, models.GameStatusPlaying, got.GameStatus)
}

func (s *PgRepositoriesSuite) TestUserGameUpdateUserFields() {
	t := s.T()
	library := s.newLibrary()
	game := s.newGame("Outer Wilds", time.Now().UnixNano()%1e9)

	_, err := s.userGames.Upsert(s.ctx, s.pool, &models.UserGame{
		LibraryID: library.ID, GameID: game.ID, Owned: true, GameStatus: models.GameStatusUnplayed,
	})
	require.NoError(t, err)

	rating := 5
	favorite := true
	status := models.GameStatusCompleted
	updated, err := s.userGames.UpdateUserFields(s.ctx, s.pool, library.ID, game.ID, models.UserGameUpdate{
		GameStatus: &status,
		UserRating: &rating,
		IsFavorite: &favorite,
	})
	require.NoError(t, err)
	require.Equal(t, models.GameStatusCompleted, updated.GameStatus)
	require.NotNil(t, updated.UserRating)
	require.Equal(t, 5, *updated.UserRating)
	require.True(t, updated.IsFavorite)

	_, err = s.userGames.UpdateUserFields(s.ctx, s.pool, library.ID, uuid.New(), models.UserGameUpdate{UserRating: &rating})
	require.True(t, errors.Is(err, models.ErrGameNotFound))
}

func (s *PgRepositoriesSuite) TestLibraryStats() {
	t := s.T()
	library := s.newLibrary()

	empty, err := s.libraries.Stats(s.ctx, library.ID)
	require.NoError(t, err)
	require.Zero(t, empty.TotalGames)
	require.Zero(t, empty.CompletionPercent)

	completed := s.newGame("Hades", time.Now().UnixNano()%1e9)
	playing := s.newGame("Hades II", time.Now().UnixNano()%1e9+1)
	for _, row := range []*models.UserGame{
		{LibraryID: library.ID, GameID: completed.ID, Owned: true, GameStatus: models.GameStatusCompleted, TotalPlaytimeMinutes: 600, IsFavorite: true},
		{LibraryID: library.ID, GameID: playing.ID, Owned: true, GameStatus: models.GameStatusPlaying, TotalPlaytimeMinutes: 60},
	} {
		_, err := s.userGames.Upsert(s.ctx, s.pool, row)
		require.NoError(t, err)
	}

	stats, err := s.libraries.Stats(s.ctx, library.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalGames)
	require.EqualValues(t, 660, stats.TotalPlaytimeMinutes)
	require.Equal(t, 1, stats.CompletedGames)
	require.Equal(t, 1, stats.PlayingGames)
	require.Equal(t, 1, stats.FavoriteGames)
	require.InDelta(t, 50.0, stats.CompletionPercent, 0.01)

	_, err = s.libraries.Stats(s.ctx, uuid.New())
	require.True(t, errors.Is(err, models.ErrLibraryNotFound))
}

func (s *PgRepositoriesSuite) TestSyncOperationAudit() {
	t := s.T()
	library := s.newLibrary()

	op := &models.SyncOperation{LibraryID: library.ID, Type: models.SyncTypeManual}
	require.NoError(t, s.operations.Create(s.ctx, op))
	require.NotEqual(t, uuid.Nil, op.ID)
	require.Equal(t, models.OperationStarted, op.Status)

	require.NoError(t, s.operations.AddCounters(s.ctx, op.ID, 10, 3, 2, 1))
	require.NoError(t, s.operations.AddCounters(s.ctx, op.ID, 5, 0, 1, 0))
	require.NoError(t, s.operations.AppendLog(s.ctx, op.ID, "fetched page 1"))
	require.NoError(t, s.operations.SetStatus(s.ctx, op.ID, models.OperationCompleted, nil))

	got, err := s.operations.GetByID(s.ctx, op.ID)
	require.NoError(t, err)
	require.Equal(t, 15, got.GamesProcessed)
	require.Equal(t, 3, got.GamesAdded)
	require.Equal(t, 3, got.GamesUpdated)
	require.Equal(t, 1, got.ErrorsCount)
	require.Equal(t, models.OperationCompleted, got.Status)
	require.NotNil(t, got.CompletedAt, "terminal status stamps completed_at")
	require.NotNil(t, got.Log)

	latest, err := s.operations.GetLatestByLibrary(s.ctx, library.ID)
	require.NoError(t, err)
	require.Equal(t, op.ID, latest.ID)

	history, err := s.operations.ListByLibrary(s.ctx, library.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func (s *PgRepositoriesSuite) TestGameSearchOrdering() {
	t := s.T()

	suffix := time.Now().UnixNano()
	older := time.Date(2015, 5, 19, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2020, 12, 10, 0, 0, 0, 0, time.UTC)

	base := fmt.Sprintf("Witchersearch%d", suffix)
	for _, g := range []*models.Game{
		{Title: base + " Hunt", NormalizedTitle: matching.NormalizeTitle(base + " Hunt"), ReleaseDate: &older},
		{Title: base + " Hunt Returns", NormalizedTitle: matching.NormalizeTitle(base + " Hunt Returns"), ReleaseDate: &newer},
	} {
		require.NoError(t, s.games.Create(s.ctx, s.pool, g))
	}

	results, total, err := s.games.Search(s.ctx, s.pool, base, interfaces.GameFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, results, 2)
	// Equal rank falls back to newest release first.
	require.Equal(t, base+" Hunt Returns", results[0].Title)
}

func TestPgRepositoriesSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(PgRepositoriesSuite))
}
