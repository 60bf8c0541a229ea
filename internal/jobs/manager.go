// Package jobs runs the asynchronous actions registered while queries are
// rewritten and keeps track of their outcome.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/model"
)

// Task is one action to run.
type Task struct {
	Type     model.ActionType
	Metadata map[string]string
	Run      func(ctx context.Context) error
}

// Manager runs actions on a bounded number of workers and tracks them.
type Manager struct {
	mu       sync.RWMutex
	actions  map[string]*model.Action
	workers  chan struct{} // Limits concurrent actions
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	metrics  *ActionMetrics
	logger   *slog.Logger
}

// NewManager creates a new action manager with specified worker count
func NewManager(maxWorkers int, logger *slog.Logger) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Manager{
		actions:  make(map[string]*model.Action),
		workers:  make(chan struct{}, maxWorkers),
		stopChan: make(chan struct{}),
		metrics:  NewActionMetrics(),
		logger:   logging.Default(logger).With("component", "jobs"),
	}
}

// Start begins background cleanup of finished actions.
func (m *Manager) Start() {
	m.logger.Info("action manager started", "max_workers", cap(m.workers))
	go m.cleanupRoutine()
}

// Stop waits for running actions and refuses new ones. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.logger.Info("action manager stopped")
}

// Create registers a pending action and returns its ID.
func (m *Manager) Create(actionType model.ActionType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	action := &model.Action{
		ID:        uuid.New().String(),
		Type:      actionType,
		Status:    model.ActionStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.actions[action.ID] = action
	m.metrics.RecordCreated(actionType)
	m.logger.Debug("created action", "id", action.ID, "type", action.Type, "index", indexName)
	return action.ID
}

// Get returns a copy of an action.
func (m *Manager) Get(actionID string) (*model.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	action, exists := m.actions[actionID]
	if !exists {
		return nil, errors.NewActionNotFoundError(actionID)
	}
	actionCopy := *action
	return &actionCopy, nil
}

// List returns the actions of an index, optionally filtered by status. An
// empty indexName lists the actions of every index.
func (m *Manager) List(indexName string, status *model.ActionStatus) []*model.Action {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*model.Action{}
	for _, action := range m.actions {
		if (indexName == "" || action.IndexName == indexName) && (status == nil || action.Status == *status) {
			actionCopy := *action
			result = append(result, &actionCopy)
		}
	}
	return result
}

// Execute runs a pending action on a worker goroutine. done, when not nil,
// receives the action's error (or nil) once it finished.
func (m *Manager) Execute(ctx context.Context, actionID string, run func(ctx context.Context) error, done chan<- error) error {
	m.mu.Lock()
	action, exists := m.actions[actionID]
	if !exists {
		m.mu.Unlock()
		return errors.NewActionNotFoundError(actionID)
	}
	if action.Status != model.ActionStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("action with ID '%s' is not in pending status (current: %s)", actionID, action.Status)
	}
	actionType := action.Type
	m.mu.Unlock()

	// Acquire worker slot
	select {
	case m.workers <- struct{}{}:
	case <-m.stopChan:
		m.updateStatus(actionID, model.ActionStatusCancelled, "action manager shutting down")
		return fmt.Errorf("action manager is shutting down")
	case <-ctx.Done():
		m.updateStatus(actionID, model.ActionStatusCancelled, ctx.Err().Error())
		return ctx.Err()
	}
	m.updateStatus(actionID, model.ActionStatusRunning, "")

	m.wg.Add(1)
	go func() {
		defer func() {
			<-m.workers // Release worker slot
			m.wg.Done()
		}()

		startTime := time.Now()
		err := run(ctx)
		executionTime := time.Since(startTime)

		if err != nil {
			m.updateStatus(actionID, model.ActionStatusFailed, err.Error())
			m.metrics.RecordFailed(actionType)
			m.logger.Warn("action failed", "id", actionID, "took", executionTime, "error", err)
		} else {
			m.updateStatus(actionID, model.ActionStatusCompleted, "")
			m.metrics.RecordCompleted(actionType, executionTime)
			m.logger.Debug("action completed", "id", actionID, "took", executionTime)
		}
		if done != nil {
			done <- err
		}
	}()

	return nil
}

// RunAll runs every task for indexName and blocks until all of them
// finished. Failures are collected into a single multierror.
func (m *Manager) RunAll(ctx context.Context, indexName string, tasks []Task) error {
	var result *multierror.Error
	done := make(chan error, len(tasks))
	started := 0

	for _, task := range tasks {
		id := m.Create(task.Type, indexName, task.Metadata)
		if err := m.Execute(ctx, id, task.Run, done); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		started++
	}
	for i := 0; i < started; i++ {
		if err := <-done; err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// updateStatus updates the status of an action (internal method)
func (m *Manager) updateStatus(actionID string, status model.ActionStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	action, exists := m.actions[actionID]
	if !exists {
		return
	}

	oldStatus := action.Status
	action.Status = status
	if errorMsg != "" {
		action.Error = errorMsg
	}
	now := time.Now()
	if status == model.ActionStatusRunning {
		action.StartedAt = &now
	}
	if action.IsDone() {
		action.CompletedAt = &now
	}

	m.metrics.RecordStatusChange(oldStatus, status)
}

// cleanupRoutine runs periodic action cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOld(24 * time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOld removes finished actions older than maxAge.
func (m *Manager) CleanupOld(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for actionID, action := range m.actions {
		if action.CompletedAt != nil && action.CompletedAt.Before(cutoff) {
			delete(m.actions, actionID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old actions", "count", cleaned)
	}
}

// Metrics returns current action metrics
func (m *Manager) Metrics() ActionMetricsData {
	return m.metrics.Snapshot()
}
