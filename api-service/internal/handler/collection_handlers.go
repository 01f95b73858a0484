package handler

import (
	"net/http"

	"game-library-server/api-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) listCollections(c *gin.Context) {
	libraryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	collections, err := h.collections.ListByLibrary(c.Request.Context(), libraryID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *APIHandler) createCollection(c *gin.Context) {
	libraryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input service.CreateCollectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortBadRequest(c, "name is required")
		return
	}

	coll, err := h.collections.Create(c.Request.Context(), libraryID, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coll)
}

func (h *APIHandler) getCollection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	coll, err := h.collections.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, coll)
}

func (h *APIHandler) updateCollection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input service.UpdateCollectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortBadRequest(c, "Malformed request body")
		return
	}

	coll, err := h.collections.Update(c.Request.Context(), id, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, coll)
}

func (h *APIHandler) deleteCollection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.collections.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) listCollectionGames(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	games, err := h.collections.ListGames(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *APIHandler) addCollectionGame(c *gin.Context) {
	collectionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	gameID, ok := pathUUID(c, "gameId")
	if !ok {
		return
	}
	if err := h.collections.AddGame(c.Request.Context(), collectionID, gameID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) removeCollectionGame(c *gin.Context) {
	collectionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	gameID, ok := pathUUID(c, "gameId")
	if !ok {
		return
	}
	if err := h.collections.RemoveGame(c.Request.Context(), collectionID, gameID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
