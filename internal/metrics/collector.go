// Package metrics provides in-memory runtime statistics collection.
// Counters reset on process restart; this is operator insight, not an
// audit trail.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpTurn         = "turn"
	OpModelStep    = "model_step"
	OpToolDispatch = "tool_dispatch"
	OpDBQuery      = "db_query"
)

// OperationMetrics holds aggregated raw metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Turn          *OperationSnapshot `json:"turn,omitempty"`
	ModelStep     *OperationSnapshot `json:"model_step,omitempty"`
	ToolDispatch  *OperationSnapshot `json:"tool_dispatch,omitempty"`
	DBQuery       *OperationSnapshot `json:"db_query,omitempty"`
	ToolCalls     map[string]int64   `json:"tool_calls,omitempty"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	toolCalls map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		toolCalls: make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordToolCall counts one dispatch of the named tool.
func (c *Collector) RecordToolCall(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolCalls[tool]++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Turn:          snapshotOp(c.ops[OpTurn]),
		ModelStep:     snapshotOp(c.ops[OpModelStep]),
		ToolDispatch:  snapshotOp(c.ops[OpToolDispatch]),
		DBQuery:       snapshotOp(c.ops[OpDBQuery]),
	}
	if len(c.toolCalls) > 0 {
		snap.ToolCalls = make(map[string]int64, len(c.toolCalls))
		for tool, count := range c.toolCalls {
			snap.ToolCalls[tool] = count
		}
	}
	return snap
}
