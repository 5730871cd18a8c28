package obsv

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryGathersWithoutError(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family after NewRegistry")
	}
}

func TestRecordCycleSuccessIncrementsCounters(t *testing.T) {
	table := "record_cycle_success_test"

	RecordCycle(CycleObserved{Table: table, Success: true, Extracted: 5, Imported: 5, Duration: 2 * time.Second})

	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues(table, OutcomeSuccess)); got != 1 {
		t.Errorf("expected cycles_total{outcome=success}=1, got %v", got)
	}
	if got := testutil.ToFloat64(RowsExtracted.WithLabelValues(table)); got != 5 {
		t.Errorf("expected rows_extracted_total=5, got %v", got)
	}
	if got := testutil.ToFloat64(RowsImported.WithLabelValues(table)); got != 5 {
		t.Errorf("expected rows_imported_total=5, got %v", got)
	}
	if got := testutil.ToFloat64(LastSuccessTimestamp.WithLabelValues(table)); got == 0 {
		t.Error("expected last_success_timestamp_seconds to be set for a non-empty successful cycle")
	}
}

func TestRecordCycleEmptyDoesNotSetLastSuccess(t *testing.T) {
	table := "record_cycle_empty_test"

	RecordCycle(CycleObserved{Table: table, Success: true, Extracted: 0, Imported: 0, Duration: time.Second})

	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues(table, OutcomeEmpty)); got != 1 {
		t.Errorf("expected cycles_total{outcome=empty}=1, got %v", got)
	}
	if got := testutil.ToFloat64(LastSuccessTimestamp.WithLabelValues(table)); got != 0 {
		t.Error("expected last_success_timestamp_seconds to remain unset for an empty cycle")
	}
}

func TestRecordCycleFailureIncrementsFailureOutcome(t *testing.T) {
	table := "record_cycle_failure_test"

	RecordCycle(CycleObserved{Table: table, Success: false, Duration: time.Second})

	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues(table, OutcomeFailure)); got != 1 {
		t.Errorf("expected cycles_total{outcome=failure}=1, got %v", got)
	}
}
