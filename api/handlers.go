package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/services"
)

// API holds dependencies for API handlers, primarily the engine.
type API struct {
	engine services.Engine
	logger *slog.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.Engine, logger *slog.Logger) *API {
	return &API{
		engine: engine,
		logger: logging.Default(logger).With("component", "api"),
	}
}

// SetupRoutes defines all the API routes.
func SetupRoutes(router *gin.Engine, engine services.Engine, logger *slog.Logger) {
	apiHandler := NewAPI(engine, logger)

	router.Use(RequestIDMiddleware())

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Async query action routes
	actionRoutes := router.Group("/actions")
	{
		actionRoutes.GET("", apiHandler.ListActionsHandler)              // List actions, optionally by index and status
		actionRoutes.GET("/metrics", apiHandler.GetActionMetricsHandler) // Get action counters
		actionRoutes.GET("/:actionID", apiHandler.GetActionHandler)      // Get one action
	}

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)                            // Create a new index
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                             // List indexes, optionally by pattern
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)                     // Get settings, fields and count
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)               // Delete an index
		indexRoutes.PUT("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler) // Replace index settings
		indexRoutes.PUT("/:indexName/mapping", apiHandler.UpdateMappingHandler)        // Replace the mapping and reindex

		// Document management routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.AddDocumentsHandler)                  // Add/Update documents
			docRoutes.GET("/:documentID", apiHandler.GetDocumentHandler)       // Get specific document
			docRoutes.DELETE("/:documentID", apiHandler.DeleteDocumentHandler) // Delete specific document
		}

		// Query routes per index
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
		indexRoutes.POST("/:indexName/_validate/query", apiHandler.ValidateQueryHandler)
	}
}

// HealthCheckHandler reports that the node is up and how many indexes it serves.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"indexes": len(api.engine.ListIndexes("")),
	})
}
