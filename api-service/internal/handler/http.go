package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"game-library-server/api-service/internal/service"
	"game-library-server/shared/middleware"
)

// APIHandler wires the HTTP surface to the service layer.
type APIHandler struct {
	platforms   service.PlatformService
	libraries   service.LibraryService
	games       service.GameService
	collections service.CollectionService
	syncs       service.SyncService
	auth        service.AuthService // nil when auth is bypassed
	logger      *zap.Logger
}

// NewAPIHandler creates an APIHandler. auth may be nil; the login endpoint
// then answers 404 and all routes are open.
func NewAPIHandler(
	platforms service.PlatformService,
	libraries service.LibraryService,
	games service.GameService,
	collections service.CollectionService,
	syncs service.SyncService,
	auth service.AuthService,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		platforms:   platforms,
		libraries:   libraries,
		games:       games,
		collections: collections,
		syncs:       syncs,
		auth:        auth,
		logger:      logger.Named("APIHandler"),
	}
}

// RegisterRoutes mounts all endpoints on the router. secret/authEnabled
// configure the admin guard on everything except /auth/login and /health.
func (h *APIHandler) RegisterRoutes(r *gin.Engine, secret string, authEnabled bool) {
	r.GET("/health", h.health)
	if h.auth != nil {
		r.POST("/auth/login", h.login)
	}

	api := r.Group("/", middleware.AdminAuth(secret, authEnabled))
	{
		api.GET("/platforms", h.listPlatforms)

		libraries := api.Group("/libraries")
		{
			libraries.GET("", h.listLibraries)
			libraries.POST("", h.createLibrary)
			libraries.GET("/:id", h.getLibrary)
			libraries.PATCH("/:id", h.updateLibrary)
			libraries.DELETE("/:id", h.deleteLibrary)
			libraries.GET("/:id/stats", h.libraryStats)

			libraries.POST("/:id/sync", h.triggerSync)
			libraries.GET("/:id/sync/status", h.syncStatus)
			libraries.POST("/:id/sync/cancel", h.cancelSync)
			libraries.GET("/:id/sync/history", h.syncHistory)

			libraries.GET("/:id/collections", h.listCollections)
			libraries.POST("/:id/collections", h.createCollection)

			libraries.PATCH("/:id/games/:gameId", h.updateUserGame)
		}

		games := api.Group("/games")
		{
			games.GET("", h.listGames)
			games.GET("/search", h.searchGames)
			games.GET("/:id", h.getGame)
		}

		collections := api.Group("/collections")
		{
			collections.GET("/:id", h.getCollection)
			collections.PATCH("/:id", h.updateCollection)
			collections.DELETE("/:id", h.deleteCollection)
			collections.GET("/:id/games", h.listCollectionGames)
			collections.PUT("/:id/games/:gameId", h.addCollectionGame)
			collections.DELETE("/:id/games/:gameId", h.removeCollectionGame)
		}
	}
}

func (h *APIHandler) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// pathUUID parses a uuid path parameter, answering 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortBadRequest(c, "Invalid "+name+" format, expected UUID")
		return uuid.Nil, false
	}
	return id, true
}
