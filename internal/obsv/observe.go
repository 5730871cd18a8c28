package obsv

import "time"

// CycleObserved is the minimal shape obsv needs from a syncengine.Result: enough
// to record outcome, duration, and row counts without importing syncengine
// (which would create an import cycle if syncengine ever wanted to emit
// metrics itself).
type CycleObserved struct {
	Table     string
	Success   bool
	Extracted int64
	Imported  int64
	Duration  time.Duration
}

// RecordCycle updates CyclesTotal, CycleDuration, RowsExtracted,
// RowsImported and LastSuccessTimestamp for one completed sync cycle.
func RecordCycle(r CycleObserved) {
	outcome := OutcomeFailure
	switch {
	case r.Success && r.Extracted == 0:
		outcome = OutcomeEmpty
	case r.Success:
		outcome = OutcomeSuccess
	}

	CyclesTotal.WithLabelValues(r.Table, outcome).Inc()
	CycleDuration.WithLabelValues(r.Table).Observe(r.Duration.Seconds())
	RowsExtracted.WithLabelValues(r.Table).Add(float64(r.Extracted))
	RowsImported.WithLabelValues(r.Table).Add(float64(r.Imported))

	if r.Success && r.Extracted > 0 {
		LastSuccessTimestamp.WithLabelValues(r.Table).SetToCurrentTime()
	}
}
