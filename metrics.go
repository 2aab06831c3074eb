package decaf

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    unitCounter   prometheus.Counter
//	    saveHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordUnitSave(classes int, duration time.Duration, err error) {
//	    p.unitCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordUnitSave is called after each unit save.
	// classes is the number of own classes written, duration is the total
	// time taken, err is nil if successful.
	RecordUnitSave(classes int, duration time.Duration, err error)

	// RecordSaveAll is called after each whole-run save.
	// units is the number of own units attempted, failed is the number
	// that failed, duration is the total time taken.
	RecordSaveAll(units, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUnitSave(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSaveAll(int, int, time.Duration)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UnitSaveCount      atomic.Int64
	UnitSaveErrors     atomic.Int64
	UnitSaveTotalNanos atomic.Int64
	ClassesWritten     atomic.Int64
	SaveAllCount       atomic.Int64
	SaveAllUnits       atomic.Int64
	SaveAllFailed      atomic.Int64
}

// RecordUnitSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnitSave(classes int, duration time.Duration, err error) {
	b.UnitSaveCount.Add(1)
	b.UnitSaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UnitSaveErrors.Add(1)
	} else {
		b.ClassesWritten.Add(int64(classes))
	}
}

// RecordSaveAll implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSaveAll(units, failed int, _ time.Duration) {
	b.SaveAllCount.Add(1)
	b.SaveAllUnits.Add(int64(units))
	b.SaveAllFailed.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UnitSaveCount:    b.UnitSaveCount.Load(),
		UnitSaveErrors:   b.UnitSaveErrors.Load(),
		UnitSaveAvgNanos: b.getAvgUnitSaveNanos(),
		ClassesWritten:   b.ClassesWritten.Load(),
		SaveAllCount:     b.SaveAllCount.Load(),
		SaveAllUnits:     b.SaveAllUnits.Load(),
		SaveAllFailed:    b.SaveAllFailed.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgUnitSaveNanos() int64 {
	count := b.UnitSaveCount.Load()
	if count == 0 {
		return 0
	}
	return b.UnitSaveTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UnitSaveCount    int64
	UnitSaveErrors   int64
	UnitSaveAvgNanos int64
	ClassesWritten   int64
	SaveAllCount     int64
	SaveAllUnits     int64
	SaveAllFailed    int64
}
