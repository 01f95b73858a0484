package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-library-server/api-service/internal/service"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/middleware"
	"game-library-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- stubs -----------------------------------------------------------------

type stubPlatformService struct {
	platforms []models.Platform
}

func (s *stubPlatformService) List(_ context.Context, enabledOnly bool) ([]models.Platform, error) {
	if !enabledOnly {
		return s.platforms, nil
	}
	enabled := make([]models.Platform, 0)
	for _, p := range s.platforms {
		if p.APIAvailable {
			enabled = append(enabled, p)
		}
	}
	return enabled, nil
}

type stubLibraryService struct {
	libraries map[uuid.UUID]*models.UserLibrary
	createErr error
}

func (s *stubLibraryService) Create(_ context.Context, input service.CreateLibraryInput) (*models.UserLibrary, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	lib := &models.UserLibrary{
		ID:             uuid.New(),
		PlatformID:     input.PlatformID,
		UserIdentifier: input.UserIdentifier,
		DisplayName:    input.DisplayName,
		SyncStatus:     models.SyncStatusPending,
	}
	return lib, nil
}

func (s *stubLibraryService) List(_ context.Context, _, _ int) ([]models.UserLibrary, int64, error) {
	out := make([]models.UserLibrary, 0, len(s.libraries))
	for _, lib := range s.libraries {
		out = append(out, *lib)
	}
	return out, int64(len(out)), nil
}

func (s *stubLibraryService) Get(_ context.Context, id uuid.UUID) (*models.UserLibrary, error) {
	lib, ok := s.libraries[id]
	if !ok {
		return nil, models.ErrLibraryNotFound
	}
	return lib, nil
}

func (s *stubLibraryService) Update(_ context.Context, id uuid.UUID, _ service.UpdateLibraryInput) (*models.UserLibrary, error) {
	return s.Get(context.Background(), id)
}

func (s *stubLibraryService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.libraries[id]; !ok {
		return models.ErrLibraryNotFound
	}
	delete(s.libraries, id)
	return nil
}

func (s *stubLibraryService) Stats(_ context.Context, id uuid.UUID) (*models.LibraryStats, error) {
	if _, ok := s.libraries[id]; !ok {
		return nil, models.ErrLibraryNotFound
	}
	return &models.LibraryStats{TotalGames: 2, CompletedGames: 1, CompletionPercent: 50}, nil
}

type stubGameService struct {
	games     map[uuid.UUID]*models.Game
	userGames map[uuid.UUID]*models.UserGame // keyed by game id
}

func (s *stubGameService) List(_ context.Context, _ interfaces.GameFilter) ([]models.Game, int64, error) {
	out := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, *g)
	}
	return out, int64(len(out)), nil
}

func (s *stubGameService) Search(ctx context.Context, _ string, filter interfaces.GameFilter) ([]models.Game, int64, error) {
	return s.List(ctx, filter)
}

func (s *stubGameService) Get(_ context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*service.GameDetails, error) {
	game, ok := s.games[gameID]
	if !ok {
		return nil, models.ErrGameNotFound
	}
	details := &service.GameDetails{Game: *game}
	if libraryID != nil {
		details.UserGame = s.userGames[gameID]
	}
	return details, nil
}

func (s *stubGameService) UpdateUserGame(_ context.Context, _, gameID uuid.UUID, upd models.UserGameUpdate) (*models.UserGame, error) {
	if upd.UserRating != nil && (*upd.UserRating < 1 || *upd.UserRating > 5) {
		return nil, &service.ValidationError{Fields: map[string]string{"user_rating": "must be between 1 and 5"}}
	}
	link, ok := s.userGames[gameID]
	if !ok {
		return nil, models.ErrGameNotFound
	}
	if upd.UserRating != nil {
		link.UserRating = upd.UserRating
	}
	return link, nil
}

type stubCollectionService struct {
	collections map[uuid.UUID]*models.GameCollection
	createErr   error
}

func (s *stubCollectionService) Create(_ context.Context, libraryID uuid.UUID, input service.CreateCollectionInput) (*models.GameCollection, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	coll := &models.GameCollection{ID: uuid.New(), LibraryID: libraryID, Name: input.Name}
	return coll, nil
}

func (s *stubCollectionService) ListByLibrary(_ context.Context, _ uuid.UUID) ([]models.GameCollection, error) {
	out := make([]models.GameCollection, 0, len(s.collections))
	for _, coll := range s.collections {
		out = append(out, *coll)
	}
	return out, nil
}

func (s *stubCollectionService) Get(_ context.Context, id uuid.UUID) (*models.GameCollection, error) {
	coll, ok := s.collections[id]
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	return coll, nil
}

func (s *stubCollectionService) Update(_ context.Context, id uuid.UUID, _ service.UpdateCollectionInput) (*models.GameCollection, error) {
	return s.Get(context.Background(), id)
}

func (s *stubCollectionService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.collections[id]; !ok {
		return models.ErrCollectionNotFound
	}
	return nil
}

func (s *stubCollectionService) AddGame(_ context.Context, _, _ uuid.UUID) error    { return nil }
func (s *stubCollectionService) RemoveGame(_ context.Context, _, _ uuid.UUID) error { return nil }
func (s *stubCollectionService) ListGames(_ context.Context, _ uuid.UUID) ([]models.Game, error) {
	return nil, nil
}

type stubSyncService struct {
	triggerErr error
	cancelErr  error
	status     *models.ProgressEvent
}

func (s *stubSyncService) Trigger(_ context.Context, _ uuid.UUID, _ bool, syncType models.SyncType) (*service.TriggerResult, error) {
	if s.triggerErr != nil {
		return nil, s.triggerErr
	}
	return &service.TriggerResult{JobID: uuid.New(), Queue: models.QueueHigh, SyncType: syncType}, nil
}

func (s *stubSyncService) Status(_ context.Context, _ uuid.UUID) (*models.ProgressEvent, error) {
	if s.status == nil {
		return nil, models.ErrLibraryNotFound
	}
	return s.status, nil
}

func (s *stubSyncService) Cancel(_ context.Context, _ uuid.UUID) error {
	return s.cancelErr
}

func (s *stubSyncService) History(_ context.Context, _ uuid.UUID, _ int) ([]models.SyncOperation, error) {
	return nil, nil
}

// --- harness ---------------------------------------------------------------

type testEnv struct {
	router      *gin.Engine
	libraries   *stubLibraryService
	games       *stubGameService
	collections *stubCollectionService
	syncs       *stubSyncService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		libraries:   &stubLibraryService{libraries: map[uuid.UUID]*models.UserLibrary{}},
		games:       &stubGameService{games: map[uuid.UUID]*models.Game{}, userGames: map[uuid.UUID]*models.UserGame{}},
		collections: &stubCollectionService{collections: map[uuid.UUID]*models.GameCollection{}},
		syncs:       &stubSyncService{},
	}

	platforms := &stubPlatformService{platforms: []models.Platform{
		{ID: uuid.New(), Code: "steam", Name: "Steam", APIAvailable: true},
		{ID: uuid.New(), Code: "gog", Name: "GOG", APIAvailable: false},
	}}

	h := NewAPIHandler(platforms, env.libraries, env.games, env.collections, env.syncs, nil, zap.NewNop())
	router := gin.New()
	router.Use(middleware.RequestID())
	h.RegisterRoutes(router, "", false)
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

// --- tests -----------------------------------------------------------------

func TestListPlatformsEnabledOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/platforms?enabled=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var platforms []models.Platform
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &platforms))
	require.Len(t, platforms, 1)
	assert.Equal(t, "steam", platforms[0].Code)
}

func TestCreateLibraryConflict(t *testing.T) {
	env := newTestEnv(t)
	env.libraries.createErr = models.ErrLibraryAlreadyExists

	rec := env.do(t, http.MethodPost, "/libraries", gin.H{
		"platform_id":     uuid.NewString(),
		"user_identifier": "76561198000000000",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	apiErr := decodeError(t, rec)
	assert.Equal(t, models.CodeLibraryAlreadyExists, apiErr.Error.Code)
	assert.NotEmpty(t, apiErr.Error.TraceID)
}

func TestCreateLibraryMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/libraries", gin.H{"display_name": "no platform"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeValidationError, decodeError(t, rec).Error.Code)
}

func TestGetLibraryBadUUID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/libraries/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeValidationError, decodeError(t, rec).Error.Code)
}

func TestGetLibraryNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/libraries/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.CodeLibraryNotFound, decodeError(t, rec).Error.Code)
}

func TestTriggerSyncAccepted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/libraries/"+uuid.NewString()+"/sync", gin.H{"sync_type": "manual"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var result service.TriggerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.QueueHigh, result.Queue)
	assert.Equal(t, models.SyncTypeManual, result.SyncType)
}

func TestTriggerSyncInvalidType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/libraries/"+uuid.NewString()+"/sync", gin.H{"sync_type": "yearly"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSyncConflictCarriesOperationID(t *testing.T) {
	env := newTestEnv(t)
	opID := uuid.New()
	env.syncs.triggerErr = &service.SyncConflictError{OperationID: &opID}

	rec := env.do(t, http.MethodPost, "/libraries/"+uuid.NewString()+"/sync", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	apiErr := decodeError(t, rec)
	assert.Equal(t, models.CodeSyncAlreadyInProgress, apiErr.Error.Code)
	require.NotNil(t, apiErr.Error.Details)
	assert.Equal(t, opID.String(), apiErr.Error.Details["operation_id"])
}

func TestCancelSyncWithoutActiveSync(t *testing.T) {
	env := newTestEnv(t)
	env.syncs.cancelErr = models.ErrNoActiveSync

	rec := env.do(t, http.MethodPost, "/libraries/"+uuid.NewString()+"/sync/cancel", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.CodeNoActiveSync, decodeError(t, rec).Error.Code)
}

func TestSyncStatusReturnsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	libID := uuid.New()
	env.syncs.status = &models.ProgressEvent{
		OperationID:     uuid.New(),
		LibraryID:       libID,
		Platform:        "steam",
		Status:          models.ProgressSyncing,
		ProgressPercent: 45,
		GamesProcessed:  89,
		UpdatedAt:       time.Now().UTC(),
	}

	rec := env.do(t, http.MethodGet, "/libraries/"+libID.String()+"/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var event models.ProgressEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, models.ProgressSyncing, event.Status)
	assert.Equal(t, 89, event.GamesProcessed)
}

func TestSearchGamesReturnsPaginatedEnvelope(t *testing.T) {
	env := newTestEnv(t)
	gameID := uuid.New()
	env.games.games[gameID] = &models.Game{ID: gameID, Title: "Hades", NormalizedTitle: "hades"}

	rec := env.do(t, http.MethodGet, "/games/search?q=hades&page=1&limit=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Pages)
}

func TestUpdateUserGameRatingOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	libID, gameID := uuid.New(), uuid.New()
	env.games.userGames[gameID] = &models.UserGame{LibraryID: libID, GameID: gameID}

	bad := 6
	rec := env.do(t, http.MethodPatch, "/libraries/"+libID.String()+"/games/"+gameID.String(),
		models.UserGameUpdate{UserRating: &bad})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	apiErr := decodeError(t, rec)
	assert.Equal(t, models.CodeValidationError, apiErr.Error.Code)
	assert.Contains(t, apiErr.Error.Details, "user_rating")
}

func TestUpdateUserGameBoundaryRatingsAccepted(t *testing.T) {
	env := newTestEnv(t)
	libID, gameID := uuid.New(), uuid.New()
	env.games.userGames[gameID] = &models.UserGame{LibraryID: libID, GameID: gameID}

	for _, rating := range []int{1, 5} {
		r := rating
		rec := env.do(t, http.MethodPatch, "/libraries/"+libID.String()+"/games/"+gameID.String(),
			models.UserGameUpdate{UserRating: &r})
		require.Equal(t, http.StatusOK, rec.Code, "rating %d", rating)
	}
}

func TestCreateCollectionDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.collections.createErr = models.ErrCollectionAlreadyExists

	rec := env.do(t, http.MethodPost, "/libraries/"+uuid.NewString()+"/collections", gin.H{"name": "Backlog"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.CodeCollectionAlreadyExists, decodeError(t, rec).Error.Code)
}

func TestRequestIDEchoedOnResponses(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/platforms", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get(middleware.RequestIDHeader))
}
