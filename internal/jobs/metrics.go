package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-shard-query/model"
)

// ActionMetricsData is a copy of the metrics, safe to hand out.
type ActionMetricsData struct {
	Created              int64                        `json:"created"`
	Completed            int64                        `json:"completed"`
	Failed               int64                        `json:"failed"`
	TotalExecutionTime   time.Duration                `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration                `json:"average_execution_time_ns"`
	ByType               map[model.ActionType]int64   `json:"by_type"`
	ByStatus             map[model.ActionStatus]int64 `json:"by_status"`
	LastUpdated          time.Time                    `json:"last_updated"`
}

// ActionMetrics tracks counters and execution times of actions.
type ActionMetrics struct {
	mu                 sync.RWMutex
	created            int64
	completed          int64
	failed             int64
	totalExecutionTime time.Duration
	byType             map[model.ActionType]int64
	byStatus           map[model.ActionStatus]int64
	lastUpdated        time.Time
}

// NewActionMetrics creates a new metrics collector
func NewActionMetrics() *ActionMetrics {
	return &ActionMetrics{
		byType:      make(map[model.ActionType]int64),
		byStatus:    make(map[model.ActionStatus]int64),
		lastUpdated: time.Now(),
	}
}

// RecordCreated counts a new pending action.
func (m *ActionMetrics) RecordCreated(actionType model.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	m.byType[actionType]++
	m.byStatus[model.ActionStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordStatusChange moves one action between status counters.
func (m *ActionMetrics) RecordStatusChange(oldStatus, newStatus model.ActionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordCompleted records a successful action.
func (m *ActionMetrics) RecordCompleted(_ model.ActionType, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed++
	m.totalExecutionTime += executionTime
	m.lastUpdated = time.Now()
}

// RecordFailed records a failed action.
func (m *ActionMetrics) RecordFailed(_ model.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.lastUpdated = time.Now()
}

// Snapshot returns a copy of the current metrics.
func (m *ActionMetrics) Snapshot() ActionMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[model.ActionType]int64, len(m.byType))
	for k, v := range m.byType {
		byType[k] = v
	}
	byStatus := make(map[model.ActionStatus]int64, len(m.byStatus))
	for k, v := range m.byStatus {
		byStatus[k] = v
	}

	var avg time.Duration
	if m.completed > 0 {
		avg = m.totalExecutionTime / time.Duration(m.completed)
	}
	return ActionMetricsData{
		Created:              m.created,
		Completed:            m.completed,
		Failed:               m.failed,
		TotalExecutionTime:   m.totalExecutionTime,
		AverageExecutionTime: avg,
		ByType:               byType,
		ByStatus:             byStatus,
		LastUpdated:          m.lastUpdated,
	}
}

// SuccessRate returns the share of finished actions that succeeded (1.0 when none finished).
func (m *ActionMetrics) SuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	finished := m.completed + m.failed
	if finished == 0 {
		return 1.0
	}
	return float64(m.completed) / float64(finished)
}
