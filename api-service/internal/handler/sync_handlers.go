package handler

import (
	"net/http"

	"game-library-server/shared/models"

	"github.com/gin-gonic/gin"
)

type triggerSyncRequest struct {
	Force    bool   `json:"force"`
	SyncType string `json:"sync_type"`
}

func (h *APIHandler) triggerSync(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// Body is optional; an empty POST means a plain manual sync.
	var req triggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, "Malformed request body")
			return
		}
	}
	syncType, valid := models.ParseSyncType(req.SyncType)
	if !valid {
		abortBadRequest(c, "sync_type must be one of manual, incremental, full")
		return
	}

	result, err := h.syncs.Trigger(c.Request.Context(), id, req.Force, syncType)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h *APIHandler) syncStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.syncs.Status(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *APIHandler) cancelSync(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.syncs.Cancel(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *APIHandler) syncHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	operations, err := h.syncs.History(c.Request.Context(), id, 20)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, operations)
}
