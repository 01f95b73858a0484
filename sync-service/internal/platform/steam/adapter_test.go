package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"game-library-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type steamStub struct {
	ownedGamesCalls atomic.Int64
	vanityCalls     atomic.Int64

	ownedGamesStatus int
	retryAfter       string
}

func (s *steamStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(pathGetOwnedGames, func(w http.ResponseWriter, r *http.Request) {
		s.ownedGamesCalls.Add(1)
		if s.ownedGamesStatus != 0 {
			if s.retryAfter != "" {
				w.Header().Set("Retry-After", s.retryAfter)
			}
			w.WriteHeader(s.ownedGamesStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":{"game_count":3,"games":[
			{"appid":292030,"name":"The Witcher 3: Wild Hunt","playtime_forever":5400,"img_icon_url":"abc123","rtime_last_played":1700000000},
			{"appid":1145360,"name":"Hades","playtime_forever":2400,"img_icon_url":"","rtime_last_played":0},
			{"appid":620,"name":"Portal 2","playtime_forever":0,"img_icon_url":"def456","rtime_last_played":0}
		]}}`)
	})
	mux.HandleFunc(pathResolveVanityURL, func(w http.ResponseWriter, r *http.Request) {
		s.vanityCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("vanityurl") == "gabelogannewell" {
			fmt.Fprint(w, `{"response":{"success":1,"steamid":"76561197960287930"}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"success":42,"message":"No match"}}`)
	})
	mux.HandleFunc(pathGetSchemaForGame, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"game":{"gameName":"The Witcher 3: Wild Hunt","availableGameStats":{"achievements":[
			{"name":"ACH_KAER_MORHEN","displayName":"Lilac and Gooseberries","description":"Find Yennefer of Vengerberg.","icon":"https://example.test/ach.jpg","hidden":0},
			{"name":"ACH_SECRET","displayName":"Secret","description":"","icon":"","hidden":1}
		]}}}`)
	})
	mux.HandleFunc(pathGetPlayerAchievements, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"playerstats":{"success":true,"achievements":[
			{"apiname":"ACH_KAER_MORHEN","achieved":1,"unlocktime":1650000000},
			{"apiname":"ACH_SECRET","achieved":0,"unlocktime":0}
		]}}`)
	})
	return mux
}

func newTestAdapter(t *testing.T, stub *steamStub) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-key", 5*time.Second, zap.NewNop())
	// Tests hammer the stub locally; the politeness floor just slows them.
	client.pacer.SetLimit(1 << 20)
	return NewAdapter(client, time.Hour, zap.NewNop()), server
}

func steamLibrary(identifier string) *models.UserLibrary {
	return &models.UserLibrary{PlatformCode: PlatformCode, UserIdentifier: identifier}
}

func TestFetchBatchSlicesCachedSnapshot(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)
	lib := steamLibrary("76561197960287930")
	ctx := context.Background()

	total, err := adapter.CountGames(ctx, lib)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	batch, err := adapter.FetchBatch(ctx, lib, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "292030", batch[0].PlatformGameID)
	assert.Equal(t, "1145360", batch[1].PlatformGameID)

	tail, err := adapter.FetchBatch(ctx, lib, 2, 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "620", tail[0].PlatformGameID)

	past, err := adapter.FetchBatch(ctx, lib, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, past)

	// One upstream call serves every batch.
	assert.Equal(t, int64(1), stub.ownedGamesCalls.Load())
}

func TestInvalidateCacheForcesRefetch(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)
	lib := steamLibrary("76561197960287930")
	ctx := context.Background()

	_, err := adapter.CountGames(ctx, lib)
	require.NoError(t, err)
	adapter.InvalidateCache(lib.UserIdentifier)
	_, err = adapter.CountGames(ctx, lib)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stub.ownedGamesCalls.Load())
}

func TestTransformSynthesizesArtworkURLs(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)
	lib := steamLibrary("76561197960287930")

	batch, err := adapter.FetchBatch(context.Background(), lib, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	witcher, err := adapter.Transform(batch[0])
	require.NoError(t, err)
	assert.Equal(t, PlatformCode, witcher.PlatformCode)
	assert.Equal(t, "The Witcher 3: Wild Hunt", witcher.Title)
	assert.Equal(t, int64(5400), witcher.PlaytimeMinutes)
	require.NotNil(t, witcher.SteamAppID)
	assert.Equal(t, int64(292030), *witcher.SteamAppID)
	require.NotNil(t, witcher.CoverImageURL)
	assert.Equal(t, "https://cdn.cloudflare.steamstatic.com/steam/apps/292030/header.jpg", *witcher.CoverImageURL)
	require.NotNil(t, witcher.IconURL)
	assert.Equal(t, "https://media.steampowered.com/steamcommunity/public/images/apps/292030/abc123.jpg", *witcher.IconURL)
	require.NotNil(t, witcher.LastPlayedAt)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *witcher.LastPlayedAt)
	assert.NotEmpty(t, witcher.RawData)

	// No icon hash, never played: both stay nil.
	hades, err := adapter.Transform(batch[1])
	require.NoError(t, err)
	assert.Nil(t, hades.IconURL)
	assert.Nil(t, hades.LastPlayedAt)
}

func TestVanityURLResolvedOnceAndCached(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)
	lib := steamLibrary("gabelogannewell")
	ctx := context.Background()

	_, err := adapter.CountGames(ctx, lib)
	require.NoError(t, err)
	adapter.InvalidateCache(lib.UserIdentifier)
	_, err = adapter.CountGames(ctx, lib)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stub.vanityCalls.Load(), "resolved id must be cached")
}

func TestVanityURLNoMatch(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)

	_, err := adapter.CountGames(context.Background(), steamLibrary("nosuchprofile"))
	require.Error(t, err)
	assert.Equal(t, models.SyncErrNotFound, models.ClassifySyncError(err).Kind)
}

func TestRateLimitedResponseCarriesRetryAfter(t *testing.T) {
	stub := &steamStub{ownedGamesStatus: http.StatusTooManyRequests, retryAfter: "120"}
	adapter, _ := newTestAdapter(t, stub)

	_, err := adapter.CountGames(context.Background(), steamLibrary("76561197960287930"))
	require.Error(t, err)
	se := models.ClassifySyncError(err)
	assert.Equal(t, models.SyncErrRateLimited, se.Kind)
	assert.Equal(t, 2*time.Minute, se.RetryAfter)
}

func TestErrorStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   models.SyncErrorKind
	}{
		{http.StatusUnauthorized, models.SyncErrAuth},
		{http.StatusForbidden, models.SyncErrAuth},
		{http.StatusNotFound, models.SyncErrNotFound},
		{http.StatusBadGateway, models.SyncErrTransient},
		{http.StatusBadRequest, models.SyncErrPermanent},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			stub := &steamStub{ownedGamesStatus: tc.status}
			adapter, _ := newTestAdapter(t, stub)

			_, err := adapter.CountGames(context.Background(), steamLibrary("76561197960287930"))
			require.Error(t, err)
			assert.Equal(t, tc.kind, models.ClassifySyncError(err).Kind)
		})
	}
}

func TestGetAchievementSchema(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)

	defs, err := adapter.GetAchievementSchema(context.Background(), "292030")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "ACH_KAER_MORHEN", defs[0].PlatformAchievementID)
	assert.Equal(t, "Lilac and Gooseberries", defs[0].Title)
	require.NotNil(t, defs[0].Description)
	assert.False(t, defs[0].Hidden)
	assert.True(t, defs[1].Hidden)
	assert.Nil(t, defs[1].Description)
}

func TestGetPlayerAchievementsFiltersLocked(t *testing.T) {
	stub := &steamStub{}
	adapter, _ := newTestAdapter(t, stub)

	unlocks, err := adapter.GetPlayerAchievements(context.Background(), steamLibrary("76561197960287930"), "292030")
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "ACH_KAER_MORHEN", unlocks[0].PlatformAchievementID)
	assert.Equal(t, time.Unix(1650000000, 0).UTC(), unlocks[0].UnlockedAt)
}

func TestIsSteamID64(t *testing.T) {
	assert.True(t, isSteamID64("76561197960287930"))
	assert.False(t, isSteamID64("gabelogannewell"))
	assert.False(t, isSteamID64("7656119796028793"))   // 16 digits
	assert.False(t, isSteamID64("7656119796028793x0")) // non-digit
}
