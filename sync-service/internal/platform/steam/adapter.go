package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"go.uber.org/zap"
)

// PlatformCode is the catalog code of this adapter.
const PlatformCode = "steam"

// Steam CDN URL patterns, keyed by appid (and icon hash where needed).
const (
	coverURLPattern = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/header.jpg"
	iconURLPattern  = "https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg"
)

// cachedLibrary is one user's full owned-games snapshot. GetOwnedGames
// returns everything at once, so FetchBatch slices this cache instead of
// paging the remote API.
type cachedLibrary struct {
	steamID   string
	games     []ownedGame
	fetchedAt time.Time
}

// Adapter implements the platform adapter contract for Steam.
type Adapter struct {
	client   *Client
	cacheTTL time.Duration
	logger   *zap.Logger

	libraries sync.Map // userIdentifier -> *cachedLibrary
	steamIDs  sync.Map // vanity name -> resolved 64-bit id
}

// Compile-time checks for the adapter contracts.
var (
	_ interfaces.PlatformAdapter     = (*Adapter)(nil)
	_ interfaces.AchievementProvider = (*Adapter)(nil)
)

// NewAdapter creates a Steam adapter over the given API client.
func NewAdapter(client *Client, cacheTTL time.Duration, logger *zap.Logger) *Adapter {
	return &Adapter{
		client:   client,
		cacheTTL: cacheTTL,
		logger:   logger.Named("SteamAdapter"),
	}
}

// PlatformCode returns "steam".
func (a *Adapter) PlatformCode() string {
	return PlatformCode
}

// CountGames returns the size of the user's library.
func (a *Adapter) CountGames(ctx context.Context, lib *models.UserLibrary) (int, error) {
	cached, err := a.library(ctx, lib.UserIdentifier)
	if err != nil {
		return 0, err
	}
	return len(cached.games), nil
}

// FetchBatch returns games [offset, offset+limit) from the cached snapshot.
func (a *Adapter) FetchBatch(ctx context.Context, lib *models.UserLibrary, offset, limit int) ([]models.RawGame, error) {
	cached, err := a.library(ctx, lib.UserIdentifier)
	if err != nil {
		return nil, err
	}

	if offset >= len(cached.games) {
		return []models.RawGame{}, nil
	}
	end := offset + limit
	if end > len(cached.games) {
		end = len(cached.games)
	}

	batch := make([]models.RawGame, 0, end-offset)
	for _, g := range cached.games[offset:end] {
		batch = append(batch, models.RawGame{
			PlatformGameID: fmt.Sprintf("%d", g.AppID),
			Payload:        g,
		})
	}
	return batch, nil
}

// Transform maps one owned-games entry to the universal shape.
func (a *Adapter) Transform(raw models.RawGame) (*models.NormalizedGame, error) {
	g, ok := raw.Payload.(ownedGame)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for game %s", raw.Payload, raw.PlatformGameID)
	}

	appID := g.AppID
	cover := fmt.Sprintf(coverURLPattern, g.AppID)

	ng := &models.NormalizedGame{
		PlatformCode:    PlatformCode,
		PlatformGameID:  raw.PlatformGameID,
		Title:           g.Name,
		PlaytimeMinutes: g.PlaytimeForever,
		CoverImageURL:   &cover,
		SteamAppID:      &appID,
	}

	if g.ImgIconURL != "" {
		icon := fmt.Sprintf(iconURLPattern, g.AppID, g.ImgIconURL)
		ng.IconURL = &icon
	}
	if g.RTimeLastPlayed > 0 {
		lastPlayed := time.Unix(g.RTimeLastPlayed, 0).UTC()
		ng.LastPlayedAt = &lastPlayed
	}
	if rawData, err := json.Marshal(g); err == nil {
		ng.RawData = rawData
	}
	return ng, nil
}

// GetGameDetails returns the cached snapshot entry for one game.
func (a *Adapter) GetGameDetails(ctx context.Context, lib *models.UserLibrary, platformGameID string) (*models.NormalizedGame, error) {
	cached, err := a.library(ctx, lib.UserIdentifier)
	if err != nil {
		return nil, err
	}
	for _, g := range cached.games {
		if fmt.Sprintf("%d", g.AppID) == platformGameID {
			return a.Transform(models.RawGame{PlatformGameID: platformGameID, Payload: g})
		}
	}
	return nil, models.NewSyncError(models.SyncErrNotFound,
		fmt.Errorf("game %s not in user's library", platformGameID))
}

// GetAchievementSchema fetches the achievement definitions of a game.
func (a *Adapter) GetAchievementSchema(ctx context.Context, platformGameID string) ([]models.PlatformAchievement, error) {
	appID, err := parseAppID(platformGameID)
	if err != nil {
		return nil, err
	}
	schema, err := a.client.GetSchemaForGame(ctx, appID)
	if err != nil {
		return nil, err
	}

	defs := make([]models.PlatformAchievement, 0, len(schema))
	for _, s := range schema {
		def := models.PlatformAchievement{
			PlatformAchievementID: s.Name,
			Title:                 s.DisplayName,
			Hidden:                s.Hidden == 1,
		}
		if s.Description != "" {
			desc := s.Description
			def.Description = &desc
		}
		if s.Icon != "" {
			icon := s.Icon
			def.IconURL = &icon
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// GetPlayerAchievements fetches the user's unlocked achievements for a game.
func (a *Adapter) GetPlayerAchievements(ctx context.Context, lib *models.UserLibrary, platformGameID string) ([]models.PlayerUnlock, error) {
	appID, err := parseAppID(platformGameID)
	if err != nil {
		return nil, err
	}
	steamID, err := a.resolveSteamID(ctx, lib.UserIdentifier)
	if err != nil {
		return nil, err
	}

	achievements, err := a.client.GetPlayerAchievements(ctx, steamID, appID)
	if err != nil {
		return nil, err
	}

	unlocks := make([]models.PlayerUnlock, 0, len(achievements))
	for _, pa := range achievements {
		if pa.Achieved != 1 {
			continue
		}
		unlocks = append(unlocks, models.PlayerUnlock{
			PlatformAchievementID: pa.APIName,
			UnlockedAt:            time.Unix(pa.UnlockTime, 0).UTC(),
		})
	}
	return unlocks, nil
}

// InvalidateCache drops the cached snapshot of one user, forcing the next
// call to refetch. Used by force syncs.
func (a *Adapter) InvalidateCache(userIdentifier string) {
	a.libraries.Delete(userIdentifier)
}

// library returns the user's owned-games snapshot, fetching it when the
// cache is empty or expired.
func (a *Adapter) library(ctx context.Context, userIdentifier string) (*cachedLibrary, error) {
	if v, ok := a.libraries.Load(userIdentifier); ok {
		cached := v.(*cachedLibrary)
		if time.Since(cached.fetchedAt) < a.cacheTTL {
			return cached, nil
		}
		a.libraries.Delete(userIdentifier)
	}

	steamID, err := a.resolveSteamID(ctx, userIdentifier)
	if err != nil {
		return nil, err
	}

	games, err := a.client.GetOwnedGames(ctx, steamID)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Fetched owned games",
		zap.String("steamID", steamID), zap.Int("count", len(games)))

	cached := &cachedLibrary{steamID: steamID, games: games, fetchedAt: time.Now()}
	a.libraries.Store(userIdentifier, cached)
	return cached, nil
}

// resolveSteamID turns the stored user identifier into a 64-bit Steam id,
// resolving vanity profile names through the API once and caching the result.
func (a *Adapter) resolveSteamID(ctx context.Context, userIdentifier string) (string, error) {
	if isSteamID64(userIdentifier) {
		return userIdentifier, nil
	}
	if v, ok := a.steamIDs.Load(userIdentifier); ok {
		return v.(string), nil
	}

	steamID, err := a.client.ResolveVanityURL(ctx, userIdentifier)
	if err != nil {
		return "", err
	}
	a.logger.Info("Resolved vanity url",
		zap.String("vanity", userIdentifier), zap.String("steamID", steamID))
	a.steamIDs.Store(userIdentifier, steamID)
	return steamID, nil
}

// isSteamID64 reports whether s looks like a 64-bit Steam id (17 digits).
func isSteamID64(s string) bool {
	if len(s) != 17 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseAppID(platformGameID string) (int64, error) {
	var appID int64
	if _, err := fmt.Sscanf(platformGameID, "%d", &appID); err != nil {
		return 0, models.NewSyncError(models.SyncErrPermanent,
			fmt.Errorf("invalid steam app id %q: %w", platformGameID, err))
	}
	return appID, nil
}
