package handler

import (
	"net/http"
	"strconv"
	"strings"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"
	"game-library-server/shared/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// gameFilterFromQuery builds the repository filter from the shared query
// parameters of GET /games and GET /games/search.
func gameFilterFromQuery(c *gin.Context) (interfaces.GameFilter, bool) {
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	filter := interfaces.GameFilter{Page: page, Limit: limit}

	if platforms := c.Query("platforms"); platforms != "" {
		filter.Platforms = strings.Split(platforms, ",")
	}
	if genres := c.Query("genres"); genres != "" {
		filter.Genres = strings.Split(genres, ",")
	}
	if minRating := c.Query("min_rating"); minRating != "" {
		rating, err := strconv.Atoi(minRating)
		if err != nil || rating < 0 || rating > 100 {
			abortBadRequest(c, "min_rating must be an integer between 0 and 100")
			return filter, false
		}
		filter.MinRating = &rating
	}
	filter.OwnedOnly, _ = strconv.ParseBool(c.Query("owned"))
	if libraryID := c.Query("library_id"); libraryID != "" {
		id, err := uuid.Parse(libraryID)
		if err != nil {
			abortBadRequest(c, "Invalid library_id format, expected UUID")
			return filter, false
		}
		filter.LibraryID = &id
	}
	return filter, true
}

func (h *APIHandler) listGames(c *gin.Context) {
	filter, ok := gameFilterFromQuery(c)
	if !ok {
		return
	}
	games, total, err := h.games.List(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewPaginatedResponse(games, filter.Page, filter.Limit, total))
}

func (h *APIHandler) searchGames(c *gin.Context) {
	filter, ok := gameFilterFromQuery(c)
	if !ok {
		return
	}
	games, total, err := h.games.Search(c.Request.Context(), c.Query("q"), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewPaginatedResponse(games, filter.Page, filter.Limit, total))
}

func (h *APIHandler) getGame(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var libraryID *uuid.UUID
	if raw := c.Query("library_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			abortBadRequest(c, "Invalid library_id format, expected UUID")
			return
		}
		libraryID = &parsed
	}

	details, err := h.games.Get(c.Request.Context(), id, libraryID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *APIHandler) updateUserGame(c *gin.Context) {
	libraryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	gameID, ok := pathUUID(c, "gameId")
	if !ok {
		return
	}

	var upd models.UserGameUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		abortBadRequest(c, "Malformed request body")
		return
	}

	link, err := h.games.UpdateUserGame(c.Request.Context(), libraryID, gameID, upd)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
