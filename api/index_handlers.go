package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-shard-query/config"
	internalErrors "github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/mapping"
)

// CreateIndexRequest is the body of POST /indexes.
type CreateIndexRequest struct {
	Settings config.IndexSettings `json:"settings"`
	Mapping  *mapping.Definition  `json:"mapping,omitempty"`
}

// CreateIndexHandler handles the request to create a new index.
// Request Body: CreateIndexRequest
func (api *API) CreateIndexHandler(c *gin.Context) {
	var req CreateIndexRequest

	// Validate JSON binding
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	// Validate index settings
	if result := ValidateIndexSettings(&req.Settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(req.Settings, req.Mapping); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexAlreadyExists):
			SendIndexExistsError(c, req.Settings.Name)
		case errors.Is(err, internalErrors.ErrInvalidInput):
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		default:
			SendIndexingError(c, "create index", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "created",
		"message": "Index '" + req.Settings.Name + "' created",
	})
}

// ListIndexesHandler lists index names. The optional pattern query parameter
// is a glob such as "movies-*".
func (api *API) ListIndexesHandler(c *gin.Context) {
	indexes := api.engine.ListIndexes(c.Query("pattern"))
	c.JSON(http.StatusOK, gin.H{"indexes": indexes, "count": len(indexes)})
}

// GetIndexHandler returns the settings, fields and document count of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	info, err := api.engine.GetIndexInfo(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteIndexHandler handles the request to delete an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if err := api.engine.DeleteIndex(indexName); err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "delete index", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "deleted",
		"message": "Index '" + indexName + "' deleted",
	})
}

// UpdateIndexSettingsHandler replaces the settings of an index. The name and
// uuid of the index are kept.
// Request Body: config.IndexSettings
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	var settings config.IndexSettings
	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.UpdateIndexSettings(indexName, settings); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexNotFound):
			SendIndexNotFoundError(c, indexName)
		case errors.Is(err, internalErrors.ErrInvalidInput):
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		default:
			SendInternalError(c, "update settings", err)
		}
		return
	}

	api.logger.Info("index settings replaced", "index", indexName)
	c.JSON(http.StatusOK, gin.H{
		"status":  "updated",
		"message": "Settings of index '" + indexName + "' updated",
	})
}

// UpdateMappingHandler replaces the mapping of an index and reindexes its documents.
// Request Body: mapping.Definition
func (api *API) UpdateMappingHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	var def mapping.Definition
	if result := ValidateJSONBinding(c, &def); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.UpdateMapping(indexName, &def); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexNotFound):
			SendIndexNotFoundError(c, indexName)
		case errors.Is(err, internalErrors.ErrInvalidInput):
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		default:
			SendIndexingError(c, "update mapping", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "updated",
		"message": "Mapping of index '" + indexName + "' updated",
	})
}
