package observability

import (
	"sync/atomic"
	"time"
)

// UpgradeStats keeps in-process counters for the membership reconciler, served on its /stats endpoint.
type UpgradeStats struct {
	claimed atomic.Uint64
	applied atomic.Uint64
	retried atomic.Uint64
	failed  atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewUpgradeStats() *UpgradeStats {
	return &UpgradeStats{}
}

func (m *UpgradeStats) IncClaimed() {
	m.claimed.Add(1)
}
func (m *UpgradeStats) IncApplied() {
	m.applied.Add(1)
}
func (m *UpgradeStats) IncRetried() {
	m.retried.Add(1)
}
func (m *UpgradeStats) IncFailed() {
	m.failed.Add(1)
}

func (m *UpgradeStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type UpgradeStatsSnapshot struct {
	Claimed         uint64        `json:"claimed"`
	Applied         uint64        `json:"applied"`
	Retried         uint64        `json:"retried"`
	Failed          uint64        `json:"failed"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *UpgradeStats) Snapshot() UpgradeStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return UpgradeStatsSnapshot{
		Claimed:         m.claimed.Load(),
		Applied:         m.applied.Load(),
		Retried:         m.retried.Load(),
		Failed:          m.failed.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}
}
