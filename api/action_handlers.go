package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/model"
)

// ListActionsQuery holds the optional filters of GET /actions.
type ListActionsQuery struct {
	Index  string `form:"index"`
	Status string `form:"status"`
}

// GetActionHandler handles getting an async query action by ID.
func (api *API) GetActionHandler(c *gin.Context) {
	actionID := c.Param("actionID")

	action, err := api.engine.GetAction(actionID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrActionNotFound) {
			SendActionNotFoundError(c, actionID)
			return
		}
		SendInternalError(c, "get action", err)
		return
	}

	c.JSON(http.StatusOK, action)
}

// ListActionsHandler lists the async actions queries registered, oldest first.
func (api *API) ListActionsHandler(c *gin.Context) {
	var query ListActionsQuery
	if result := ValidateQueryBinding(c, &query); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var statusFilter *model.ActionStatus
	if query.Status != "" {
		status := model.ActionStatus(query.Status)
		switch status {
		case model.ActionStatusPending, model.ActionStatusRunning, model.ActionStatusCompleted,
			model.ActionStatusFailed, model.ActionStatusCancelled:
			statusFilter = &status
		default:
			result := &ValidationResult{Valid: true}
			result.AddError("status", "Unknown action status '"+query.Status+"'")
			SendValidationError(c, result)
			return
		}
	}

	actions := api.engine.ListActions(query.Index, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
		"count":   len(actions),
	})
}

// GetActionMetricsHandler returns counters of the actions run so far.
func (api *API) GetActionMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.ActionMetrics())
}
