package handler

import (
	"net/http"
	"strconv"

	"game-library-server/api-service/internal/service"
	"game-library-server/shared/models"
	"game-library-server/shared/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *APIHandler) listPlatforms(c *gin.Context) {
	enabledOnly, _ := strconv.ParseBool(c.Query("enabled"))
	platforms, err := h.platforms.List(c.Request.Context(), enabledOnly)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, platforms)
}

func (h *APIHandler) listLibraries(c *gin.Context) {
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	libraries, total, err := h.libraries.List(c.Request.Context(), page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewPaginatedResponse(libraries, page, limit, total))
}

func (h *APIHandler) createLibrary(c *gin.Context) {
	var input service.CreateLibraryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid create library payload", zap.Error(err))
		abortBadRequest(c, "platform_id and user_identifier are required")
		return
	}

	library, err := h.libraries.Create(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, library)
}

func (h *APIHandler) getLibrary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	library, err := h.libraries.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

func (h *APIHandler) updateLibrary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input service.UpdateLibraryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortBadRequest(c, "Malformed request body")
		return
	}

	library, err := h.libraries.Update(c.Request.Context(), id, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

func (h *APIHandler) deleteLibrary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.libraries.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) libraryStats(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.libraries.Stats(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
