package model

import (
	"time"
)

// ActionStatus represents the status of an asynchronous query action
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusRunning   ActionStatus = "running"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusCancelled ActionStatus = "cancelled"
)

// ActionType names what an asynchronous action fetches or does.
type ActionType string

const (
	ActionTypeTermsLookup ActionType = "terms_lookup"
	ActionTypeCustom      ActionType = "custom"
)

// Action is a follow-up registered while a query was rewritten, such as
// fetching the terms of a terms-lookup from another index.
type Action struct {
	ID          string            `json:"id"`
	Type        ActionType        `json:"type"`
	Status      ActionStatus      `json:"status"`
	IndexName   string            `json:"index_name"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsDone reports whether the action reached a final status.
func (a *Action) IsDone() bool {
	return a.Status == ActionStatusCompleted || a.Status == ActionStatusFailed || a.Status == ActionStatusCancelled
}
