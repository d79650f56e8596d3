package persist

import (
	"fmt"
	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"time"
)

// --------------------------------------------------------------------------
// Process-wide counters (exported in Prometheus text format)
// --------------------------------------------------------------------------

// Rehydrate outcomes
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultStale    = "stale"
	ResultMismatch = "mismatch"
	ResultError    = "error"
	ResultSkipped  = "skipped"
)

// Write skip reasons
const (
	SkipUnchanged = "unchanged"
	SkipIdentity  = "identity"
)

var (
	writesTotal      = vm.NewCounter("stash_writes_total")
	writeErrorsTotal = vm.NewCounter("stash_write_errors_total")
	sympathyResets   = vm.NewCounter("stash_sympathy_resets_total")
)

func countRehydrate(result string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`stash_rehydrate_total{result=%q}`, result)).Inc()
}

func countSkippedWrite(reason string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`stash_writes_skipped_total{reason=%q}`, reason)).Inc()
}

// RehydrateCount returns how often a load ended with result.
func RehydrateCount(result string) uint64 {
	return vm.GetOrCreateCounter(fmt.Sprintf(`stash_rehydrate_total{result=%q}`, result)).Get()
}

// --------------------------------------------------------------------------
// Per-subscriber statistics
// --------------------------------------------------------------------------

// Stats is a snapshot of the write statistics of one Subscriber.
type Stats struct {
	Notifications int64
	Writes        int64
	Failures      int64
	Skipped       int64
	// BytesMean is the mean encoded size of all blobs of a write
	BytesMean float64
	BytesMax  int64
	// DurationP95 is the 95th percentile of the write duration
	DurationP95 time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("notifications=%d writes=%d failures=%d skipped=%d bytes(mean=%.0f max=%d) p95=%s",
		s.Notifications, s.Writes, s.Failures, s.Skipped, s.BytesMean, s.BytesMax, s.DurationP95)
}

// writeStats uses only counters and histograms: go-metrics meters and timers
// start a background ticker goroutine.
type writeStats struct {
	registry      gometrics.Registry
	notifications gometrics.Counter
	writes        gometrics.Counter
	failures      gometrics.Counter
	skipped       gometrics.Counter
	bytes         gometrics.Histogram
	duration      gometrics.Histogram
}

func newWriteStats() *writeStats {
	s := &writeStats{
		registry:      gometrics.NewRegistry(),
		notifications: gometrics.NewCounter(),
		writes:        gometrics.NewCounter(),
		failures:      gometrics.NewCounter(),
		skipped:       gometrics.NewCounter(),
		bytes:         gometrics.NewHistogram(gometrics.NewUniformSample(1028)),
		duration:      gometrics.NewHistogram(gometrics.NewUniformSample(1028)),
	}
	for name, m := range map[string]any{
		"persist.notify":         s.notifications,
		"persist.write.count":    s.writes,
		"persist.write.failures": s.failures,
		"persist.write.skipped":  s.skipped,
		"persist.write.bytes":    s.bytes,
		"persist.write.duration": s.duration,
	} {
		// names are unique, Register can only fail on duplicates
		_ = s.registry.Register(name, m)
	}
	return s
}

func (s *writeStats) observeWrite(bytes int, d time.Duration, err error) {
	if err != nil {
		s.failures.Inc(1)
		writeErrorsTotal.Inc()
		return
	}
	s.writes.Inc(1)
	s.bytes.Update(int64(bytes))
	s.duration.Update(int64(d))
	writesTotal.Inc()
}

func (s *writeStats) observeSkip(reason string) {
	s.skipped.Inc(1)
	countSkippedWrite(reason)
}

func (s *writeStats) snapshot() Stats {
	bytes := s.bytes.Snapshot()
	duration := s.duration.Snapshot()
	return Stats{
		Notifications: s.notifications.Count(),
		Writes:        s.writes.Count(),
		Failures:      s.failures.Count(),
		Skipped:       s.skipped.Count(),
		BytesMean:     bytes.Mean(),
		BytesMax:      bytes.Max(),
		DurationP95:   time.Duration(duration.Percentile(0.95)),
	}
}
