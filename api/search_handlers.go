package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/services"
)

// SearchHandler runs a query against an index.
// Request Body: services.SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	// Validate index name
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var req services.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidateQueryBody(req.Query); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	from, size, result := ValidateSearchWindow(req.From, req.Size)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	req.From, req.Size = from, size

	results, err := api.engine.Search(c.Request.Context(), indexName, req)
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ValidateQueryHandler compiles a query without running it and reports
// whether it is valid and cacheable.
// Request Body: services.ValidateRequest
func (api *API) ValidateQueryHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	var req services.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidateQueryBody(req.Query); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	result, err := api.engine.ValidateQuery(c.Request.Context(), indexName, req)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "validate query", err)
		return
	}

	c.JSON(http.StatusOK, result)
}
