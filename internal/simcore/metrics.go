package simcore

import (
	"sync"
	"time"
)

// Metrics accumulates the per-phase timing and cache-hit counters spec.md
// §4.12 step 6 reports every 300 ticks, grounded on
// original_source/src/Game/Managers/GameManager.h's PerformanceStats struct.
// Field names are kept stable (SPEC_FULL.md §3.4) since the admin /metrics
// endpoint exposes this struct directly as JSON for load-test scripts.
type Metrics struct {
	mu sync.Mutex

	TickNumber uint64 `json:"tickNumber"`

	CommandsProcessed uint64 `json:"commandsProcessed"`

	CommandProcessingTime time.Duration `json:"-"`
	WorldUpdateTime        time.Duration `json:"-"`
	SnapshotTime           time.Duration `json:"-"`

	AvgCommandProcessingMicros float64 `json:"avgCommandProcessingMicros"`
	AvgWorldUpdateMicros       float64 `json:"avgWorldUpdateMicros"`
	AvgSnapshotMicros          float64 `json:"avgSnapshotMicros"`

	AOICacheHitRatio float64 `json:"aoiCacheHitRatio"`

	SessionCount int `json:"sessionCount"`
	PlayerCount  int `json:"playerCount"`
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordCommand(d time.Duration, n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsProcessed += n
	m.CommandProcessingTime += d
}

func (m *Metrics) recordWorldUpdate(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorldUpdateTime += d
}

func (m *Metrics) recordSnapshot(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotTime += d
}

// report finalizes the averages over the last window of ticks and resets
// the accumulators, called once every Config.StatsReportInterval ticks.
func (m *Metrics) report(tick uint64, windowTicks uint64, aoiHitRatio float64, sessionCount, playerCount int) Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Metrics{
		TickNumber:        tick,
		CommandsProcessed: m.CommandsProcessed,
		AOICacheHitRatio:  aoiHitRatio,
		SessionCount:      sessionCount,
		PlayerCount:       playerCount,
	}
	if windowTicks > 0 {
		snapshot.AvgCommandProcessingMicros = float64(m.CommandProcessingTime.Microseconds()) / float64(windowTicks)
		snapshot.AvgWorldUpdateMicros = float64(m.WorldUpdateTime.Microseconds()) / float64(windowTicks)
		snapshot.AvgSnapshotMicros = float64(m.SnapshotTime.Microseconds()) / float64(windowTicks)
	}

	m.CommandsProcessed = 0
	m.CommandProcessingTime = 0
	m.WorldUpdateTime = 0
	m.SnapshotTime = 0

	return snapshot
}

// Snapshot returns a thread-safe copy for the admin /metrics endpoint,
// reflecting the most recent reported window rather than the live
// in-progress accumulators.
func (c *Core) Snapshot() Metrics {
	c.lastReportMu.RLock()
	defer c.lastReportMu.RUnlock()
	return c.lastReport
}
