package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters for a feed run.
type Metrics struct {
	frames        uint64
	framingErrors uint64
	events        uint64
	unrecognized  uint64
	bookWarnings  uint64
	batches       uint64
	trades        uint64

	batchLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Frames        uint64
	FramingErrors uint64
	Events        uint64
	Unrecognized  uint64
	BookWarnings  uint64
	Batches       uint64
	Trades        uint64
	BatchLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncFrame records one decoded frame.
func (m *Metrics) IncFrame() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.frames, 1)
}

// IncFramingError records a frame discarded for a bad count or short read.
func (m *Metrics) IncFramingError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framingErrors, 1)
}

// AddEvents records decoded events, unrecognized ones counted separately.
func (m *Metrics) AddEvents(total, unrecognized int) {
	if m == nil {
		return
	}
	if total > 0 {
		atomic.AddUint64(&m.events, uint64(total))
	}
	if unrecognized > 0 {
		atomic.AddUint64(&m.unrecognized, uint64(unrecognized))
	}
}

// IncBookWarning records a non-fatal book consistency warning.
func (m *Metrics) IncBookWarning() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.bookWarnings, 1)
}

// IncTrade records one strategy fill.
func (m *Metrics) IncTrade() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.trades, 1)
}

// ObserveBatch records one flushed batch and how long apply+strategy took.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.batches, 1)
	m.batchLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Frames:        atomic.LoadUint64(&m.frames),
		FramingErrors: atomic.LoadUint64(&m.framingErrors),
		Events:        atomic.LoadUint64(&m.events),
		Unrecognized:  atomic.LoadUint64(&m.unrecognized),
		BookWarnings:  atomic.LoadUint64(&m.bookWarnings),
		Batches:       atomic.LoadUint64(&m.batches),
		Trades:        atomic.LoadUint64(&m.trades),
		BatchLatency:  m.batchLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
