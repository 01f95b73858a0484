package steam

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"game-library-server/shared/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Steam Web API paths.
const (
	pathGetOwnedGames         = "/IPlayerService/GetOwnedGames/v1/"
	pathResolveVanityURL      = "/ISteamUser/ResolveVanityURL/v1/"
	pathGetSchemaForGame      = "/ISteamUserStats/GetSchemaForGame/v2/"
	pathGetPlayerAchievements = "/ISteamUserStats/GetPlayerAchievements/v1/"
)

// clientFloorRate is the local politeness pacing of outbound Steam calls.
// The shared budget lives in the distributed limiter; this only keeps a
// single worker from bursting.
var clientFloorRate = rate.Every(500 * time.Millisecond)

// Client is a thin Steam Web API client. Every method returns errors
// classified as *models.SyncError.
type Client struct {
	http   *resty.Client
	apiKey string
	pacer  *rate.Limiter
	logger *zap.Logger
}

// NewClient builds a Steam Web API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		apiKey: apiKey,
		pacer:  rate.NewLimiter(clientFloorRate, 1),
		logger: logger.Named("SteamClient"),
	}
}

// ownedGame is one entry of GetOwnedGames.
type ownedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int64  `json:"playtime_forever"` // minutes
	ImgIconURL      string `json:"img_icon_url"`
	RTimeLastPlayed int64  `json:"rtime_last_played"` // unix seconds, 0 when never
	HasStats        bool   `json:"has_community_visible_stats"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []ownedGame `json:"games"`
	} `json:"response"`
}

type vanityResponse struct {
	Response struct {
		Success int    `json:"success"` // 1 = match
		SteamID string `json:"steamid"`
		Message string `json:"message"`
	} `json:"response"`
}

// schemaAchievement is one achievement definition of GetSchemaForGame.
type schemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Hidden      int    `json:"hidden"`
}

type gameSchemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []schemaAchievement `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// playerAchievement is one entry of GetPlayerAchievements.
type playerAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"` // unix seconds
}

type playerAchievementsResponse struct {
	PlayerStats struct {
		Success      bool                `json:"success"`
		Error        string              `json:"error"`
		Achievements []playerAchievement `json:"achievements"`
	} `json:"playerstats"`
}

// GetOwnedGames fetches the user's whole library in one call.
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]ownedGame, error) {
	var out ownedGamesResponse
	err := c.get(ctx, pathGetOwnedGames, map[string]string{
		"steamid":                   steamID,
		"include_appinfo":           "1",
		"include_played_free_games": "1",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Response.Games, nil
}

// ResolveVanityURL resolves a vanity profile name to a 64-bit Steam id.
func (c *Client) ResolveVanityURL(ctx context.Context, vanityName string) (string, error) {
	var out vanityResponse
	err := c.get(ctx, pathResolveVanityURL, map[string]string{
		"vanityurl": vanityName,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Response.Success != 1 || out.Response.SteamID == "" {
		return "", models.NewSyncError(models.SyncErrNotFound,
			fmt.Errorf("vanity url %q did not resolve: %s", vanityName, out.Response.Message))
	}
	return out.Response.SteamID, nil
}

// GetSchemaForGame fetches the achievement definitions of a game. Games
// without achievements return an empty slice.
func (c *Client) GetSchemaForGame(ctx context.Context, appID int64) ([]schemaAchievement, error) {
	var out gameSchemaResponse
	err := c.get(ctx, pathGetSchemaForGame, map[string]string{
		"appid": strconv.FormatInt(appID, 10),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Game.AvailableGameStats.Achievements, nil
}

// GetPlayerAchievements fetches the user's achievement state for a game.
func (c *Client) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]playerAchievement, error) {
	var out playerAchievementsResponse
	err := c.get(ctx, pathGetPlayerAchievements, map[string]string{
		"steamid": steamID,
		"appid":   strconv.FormatInt(appID, 10),
	}, &out)
	if err != nil {
		return nil, err
	}
	// Steam reports "Requested app has no stats" as success=false with 400;
	// the classified error already covers the HTTP case, this covers the
	// in-body variant.
	if !out.PlayerStats.Success && out.PlayerStats.Error != "" {
		return nil, nil
	}
	return out.PlayerStats.Achievements, nil
}

// get performs one paced API call and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return models.NewSyncError(models.SyncErrTransient, err)
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetQueryParams(params).
		SetResult(result).
		Get(path)

	latency := time.Since(started)
	if err != nil {
		c.logger.Warn("Steam API request failed",
			zap.String("path", path), zap.Duration("latency", latency), zap.Error(err))
		return models.NewSyncError(models.SyncErrTransient, fmt.Errorf("steam api request failed: %w", err))
	}

	c.logger.Debug("Steam API request",
		zap.String("path", path), zap.Int("status", resp.StatusCode()), zap.Duration("latency", latency))

	if resp.IsError() {
		return classifyStatus(resp, path)
	}
	return nil
}

// classifyStatus maps an HTTP error status to the sync error taxonomy.
func classifyStatus(resp *resty.Response, path string) error {
	status := resp.StatusCode()
	err := fmt.Errorf("steam api %s returned %d", path, status)

	switch {
	case status == http.StatusTooManyRequests:
		return models.NewRateLimitedError(parseRetryAfter(resp), err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.NewSyncError(models.SyncErrAuth, err)
	case status == http.StatusNotFound:
		return models.NewSyncError(models.SyncErrNotFound, err)
	case status >= 500:
		return models.NewSyncError(models.SyncErrTransient, err)
	default:
		return models.NewSyncError(models.SyncErrPermanent, err)
	}
}

// parseRetryAfter reads the Retry-After header, defaulting to five minutes
// when Steam does not send one.
func parseRetryAfter(resp *resty.Response) time.Duration {
	const fallback = 5 * time.Minute

	header := resp.Header().Get("Retry-After")
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return fallback
}
