package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/model"
)

// AddDocumentsHandler handles adding/updating documents in an index.
// Request Body: a document object or an array of documents
func (api *API) AddDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	// Read the raw JSON data first
	var rawData interface{}
	if err := c.ShouldBindJSON(&rawData); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	var docs []model.Document

	// Check if the raw data is a slice (array) or a single object
	if dataSlice, isSlice := rawData.([]interface{}); isSlice {
		docs = make([]model.Document, len(dataSlice))
		for i, item := range dataSlice {
			docMap, isMap := item.(map[string]interface{})
			if !isMap {
				SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, fmt.Sprintf("Document at index %d is not a valid object", i))
				return
			}
			docs[i] = docMap
		}
	} else if docMap, isMap := rawData.(map[string]interface{}); isMap {
		docs = []model.Document{docMap}
	} else {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Invalid request body. Expecting a document object or an array of documents")
		return
	}

	if result := ValidateDocuments(docs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	for _, doc := range docs {
		doc["documentID"] = strings.TrimSpace(doc["documentID"].(string))
	}

	if err := api.engine.AddDocuments(indexName, docs); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexNotFound):
			SendIndexNotFoundError(c, indexName)
		case errors.Is(err, internalErrors.ErrInvalidInput):
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		default:
			SendIndexingError(c, "add documents", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("%d document(s) added/updated in index '%s'", len(docs), indexName),
		"document_count": len(docs),
	})
}

// GetDocumentHandler returns one stored document.
func (api *API) GetDocumentHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	documentID := c.Param("documentID")

	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := api.engine.GetDocument(c.Request.Context(), indexName, documentID)
	if err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexNotFound):
			SendIndexNotFoundError(c, indexName)
		case errors.Is(err, internalErrors.ErrDocumentNotFound):
			SendDocumentNotFoundError(c, documentID, indexName)
		default:
			SendInternalError(c, "get document", err)
		}
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler removes one document from an index.
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	documentID := c.Param("documentID")

	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.DeleteDocument(indexName, documentID); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrIndexNotFound):
			SendIndexNotFoundError(c, indexName)
		case errors.Is(err, internalErrors.ErrDocumentNotFound):
			SendDocumentNotFoundError(c, documentID, indexName)
		default:
			SendIndexingError(c, "delete document", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Document '" + documentID + "' deleted from index '" + indexName + "'",
	})
}
