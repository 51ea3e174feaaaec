package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed atomic.Uint64
	tradesApplied  atomic.Uint64
	tradesRejected atomic.Uint64
	resets         atomic.Uint64

	// Tick latency tracking
	tickLatencySumNs atomic.Int64
	tickLatencyCount atomic.Uint64

	// Gauges
	activeSessions atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one completed tick cycle with its latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksProcessed.Add(1)
	m.tickLatencySumNs.Add(latencyNs)
	m.tickLatencyCount.Add(1)
}

// RecordTradeApplied records a successfully applied trade.
func (m *Metrics) RecordTradeApplied() {
	m.tradesApplied.Add(1)
}

// RecordTradeRejected records a rejected trade (unknown symbol, bad input).
func (m *Metrics) RecordTradeRejected() {
	m.tradesRejected.Add(1)
}

// RecordReset records an engine reset.
func (m *Metrics) RecordReset() {
	m.resets.Add(1)
}

// SetActiveSessions sets the current active session count.
func (m *Metrics) SetActiveSessions(count int32) {
	m.activeSessions.Store(count)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed   uint64
	TradesApplied    uint64
	TradesRejected   uint64
	Resets           uint64
	AvgTickLatencyNs int64
	ActiveSessions   int32
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.tickLatencyCount.Load()
	if count > 0 {
		avgLatency = m.tickLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed:   m.ticksProcessed.Load(),
		TradesApplied:    m.tradesApplied.Load(),
		TradesRejected:   m.tradesRejected.Load(),
		Resets:           m.resets.Load(),
		AvgTickLatencyNs: avgLatency,
		ActiveSessions:   m.activeSessions.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.tradesApplied.Store(0)
	m.tradesRejected.Store(0)
	m.resets.Store(0)
	m.tickLatencySumNs.Store(0)
	m.tickLatencyCount.Store(0)
	m.activeSessions.Store(0)
}
