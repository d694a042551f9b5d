// Package lifecycle is the memory/lifecycle manager: a 10s ticker that
// evicts settled bets and expired proposals, caps the active-bet set,
// and samples RSS to decide whether the agent is under memory pressure
// (spec.md §4.10).
package lifecycle

import (
	"context"
	"os"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// TickInterval is the fixed cadence spec.md §4.10 names ("every 10s") —
// unlike the other tickers this one isn't configurable.
const TickInterval = 10 * time.Second

// PressureFraction is the RSS/maxMemoryGb ratio above which the agent is
// considered under memory pressure (spec.md §4.9.1, §4.10: "85%").
const PressureFraction = 0.85

// BetStore is the slice of the coordinator's state the manager is
// allowed to mutate: cap and TTL enforcement only, never bet content.
type BetStore interface {
	EvictSettled() int
	EvictExpiredProposals(ttl time.Duration) int
	EvictOldestBetsOverCap(maxActiveBets int) int
}

// SampleRSSBytes reads this process's resident set size.
func SampleRSSBytes() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

// Pressure reports whether rssBytes exceeds PressureFraction of
// maxMemoryGb.
func Pressure(rssBytes uint64, maxMemoryGb float64) bool {
	limit := maxMemoryGb * 1024 * 1024 * 1024 * PressureFraction
	return float64(rssBytes) > limit
}

// Manager runs the periodic cleanup pass and tracks peak memory metrics.
type Manager struct {
	store                BetStore
	maxMemoryGb           float64
	maxActiveBets         int
	pendingProposalTTL    time.Duration
	logger                *zap.Logger

	peakRSSBytes  atomic.Uint64
	peakHeapBytes atomic.Uint64
}

// New builds a Manager over store, enforcing maxActiveBets and
// pendingProposalTTL, and logging via logger (may be nil).
func New(store BetStore, maxMemoryGb float64, maxActiveBets int, pendingProposalTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:              store,
		maxMemoryGb:        maxMemoryGb,
		maxActiveBets:      maxActiveBets,
		pendingProposalTTL: pendingProposalTTL,
		logger:             logger,
	}
}

// Run ticks every TickInterval until ctx is cancelled. Intended to run in
// its own goroutine, started by the orchestrator (component 11).
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.TickOnce()
		}
	}
}

// TickOnce runs one cleanup pass: eviction, then RSS sampling, then peak
// metric updates. Never returns an error — every failure is logged and
// skipped (spec.md §4.10 runs unconditionally every tick).
func (m *Manager) TickOnce() {
	settled := m.store.EvictSettled()
	expired := m.store.EvictExpiredProposals(m.pendingProposalTTL)
	capped := m.store.EvictOldestBetsOverCap(m.maxActiveBets)
	if (settled > 0 || expired > 0 || capped > 0) && m.logger != nil {
		m.logger.Info("lifecycle cleanup",
			zap.Int("settledEvicted", settled),
			zap.Int("expiredProposalsEvicted", expired),
			zap.Int("cappedBetsEvicted", capped))
	}

	rss, err := SampleRSSBytes()
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("lifecycle: rss sample failed", zap.Error(err))
		}
		return
	}
	m.updatePeakRSS(rss)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.updatePeakHeap(memStats.HeapAlloc)

	if Pressure(rss, m.maxMemoryGb) {
		if m.logger != nil {
			m.logger.Warn("lifecycle: over soft memory limit, requesting GC",
				zap.Uint64("rssBytes", rss),
				zap.Float64("maxMemoryGb", m.maxMemoryGb))
		}
		debug.FreeOSMemory()
	}
}

func (m *Manager) updatePeakRSS(rss uint64) {
	for {
		cur := m.peakRSSBytes.Load()
		if rss <= cur || m.peakRSSBytes.CompareAndSwap(cur, rss) {
			return
		}
	}
}

func (m *Manager) updatePeakHeap(heap uint64) {
	for {
		cur := m.peakHeapBytes.Load()
		if heap <= cur || m.peakHeapBytes.CompareAndSwap(cur, heap) {
			return
		}
	}
}

// PeakRSSBytes returns the highest RSS sampled since Manager was created.
func (m *Manager) PeakRSSBytes() uint64 {
	return m.peakRSSBytes.Load()
}

// PeakHeapBytes returns the highest heap-alloc sampled since Manager was
// created.
func (m *Manager) PeakHeapBytes() uint64 {
	return m.peakHeapBytes.Load()
}
