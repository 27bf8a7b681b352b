package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	committed     atomic.Uint64
	rejected      atomic.Uint64
	failed        atomic.Uint64
	linesAppended atomic.Uint64
	appendRetries atomic.Uint64

	// Latency tracking (allocate + append, committed submissions only)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	lastClientOrderID atomic.Uint64
	logPoisoned       atomic.Int32 // 1 = poisoned
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordCommit records a committed submission with its latency.
func (m *Metrics) RecordCommit(latency time.Duration) {
	m.committed.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordRejection records a submission rejected by validation.
func (m *Metrics) RecordRejection() {
	m.rejected.Add(1)
}

// RecordFailure records a submission that failed after validation.
func (m *Metrics) RecordFailure() {
	m.failed.Add(1)
}

// RecordAppend records one line made durable in the message log.
func (m *Metrics) RecordAppend() {
	m.linesAppended.Add(1)
}

// RecordAppendRetry records one retried append attempt.
func (m *Metrics) RecordAppendRetry() {
	m.appendRetries.Add(1)
}

// SetLastClientOrderID stores the most recently issued id.
func (m *Metrics) SetLastClientOrderID(id uint64) {
	m.lastClientOrderID.Store(id)
}

// SetLogPoisoned flags the message log as unusable.
func (m *Metrics) SetLogPoisoned(poisoned bool) {
	if poisoned {
		m.logPoisoned.Store(1)
	} else {
		m.logPoisoned.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Committed         uint64    `json:"committed"`
	Rejected          uint64    `json:"rejected"`
	Failed            uint64    `json:"failed"`
	LinesAppended     uint64    `json:"lines_appended"`
	AppendRetries     uint64    `json:"append_retries"`
	AvgCommitLatency  int64     `json:"avg_commit_latency_ns"`
	LastClientOrderID uint64    `json:"last_client_order_id"`
	LogPoisoned       bool      `json:"log_poisoned"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Committed:         m.committed.Load(),
		Rejected:          m.rejected.Load(),
		Failed:            m.failed.Load(),
		LinesAppended:     m.linesAppended.Load(),
		AppendRetries:     m.appendRetries.Load(),
		AvgCommitLatency:  avgLatency,
		LastClientOrderID: m.lastClientOrderID.Load(),
		LogPoisoned:       m.logPoisoned.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.committed.Store(0)
	m.rejected.Store(0)
	m.failed.Store(0)
	m.linesAppended.Store(0)
	m.appendRetries.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.lastClientOrderID.Store(0)
	m.logPoisoned.Store(0)
}
