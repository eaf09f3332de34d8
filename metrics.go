package scalebloom

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// package promstats provides one.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordDelete is called after each delete operation. removed reports
	// whether a sub-filter was decremented.
	RecordDelete(removed bool, duration time.Duration, err error)

	// RecordCheck is called after each membership check.
	RecordCheck(hit bool, duration time.Duration)

	// RecordFlush is called after each flush that had pending mutations.
	RecordFlush(duration time.Duration, err error)

	// RecordScale is called when a new sub-filter was appended.
	RecordScale(subFilters int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)          {}
func (NoopMetricsCollector) RecordDelete(bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordCheck(bool, time.Duration)         {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)        {}
func (NoopMetricsCollector) RecordScale(int)                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	DeleteCount     atomic.Int64
	DeleteRemoved   atomic.Int64
	DeleteErrors    atomic.Int64
	CheckCount      atomic.Int64
	CheckHits       atomic.Int64
	CheckTotalNanos atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushTotalNanos atomic.Int64
	SubFilters      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(removed bool, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if removed {
		b.DeleteRemoved.Add(1)
	}
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordCheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheck(hit bool, duration time.Duration) {
	b.CheckCount.Add(1)
	b.CheckTotalNanos.Add(duration.Nanoseconds())
	if hit {
		b.CheckHits.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordScale implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScale(subFilters int) {
	b.SubFilters.Store(int64(subFilters))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:      b.AddCount.Load(),
		AddErrors:     b.AddErrors.Load(),
		AddAvgNanos:   avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		DeleteCount:   b.DeleteCount.Load(),
		DeleteRemoved: b.DeleteRemoved.Load(),
		DeleteErrors:  b.DeleteErrors.Load(),
		CheckCount:    b.CheckCount.Load(),
		CheckHits:     b.CheckHits.Load(),
		CheckAvgNanos: avg(b.CheckTotalNanos.Load(), b.CheckCount.Load()),
		FlushCount:    b.FlushCount.Load(),
		FlushErrors:   b.FlushErrors.Load(),
		FlushAvgNanos: avg(b.FlushTotalNanos.Load(), b.FlushCount.Load()),
		SubFilters:    b.SubFilters.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount      int64
	AddErrors     int64
	AddAvgNanos   int64
	DeleteCount   int64
	DeleteRemoved int64
	DeleteErrors  int64
	CheckCount    int64
	CheckHits     int64
	CheckAvgNanos int64
	FlushCount    int64
	FlushErrors   int64
	FlushAvgNanos int64
	SubFilters    int64
}
