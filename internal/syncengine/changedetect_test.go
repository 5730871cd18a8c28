package syncengine

import (
	"strings"
	"testing"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
)

func TestHighWatermarkDetectorFirstCycle(t *testing.T) {
	d := HighWatermarkDetector{WatermarkColumn: "updated_at"}
	q := d.Detect("orders", nil)
	if strings.Contains(q.SQL, "WHERE") {
		t.Errorf("expected a full scan with no WHERE clause on first cycle, got %q", q.SQL)
	}
	if len(q.Params) != 0 {
		t.Errorf("expected no params on first cycle, got %v", q.Params)
	}
}

func TestHighWatermarkDetectorSubsequentCycle(t *testing.T) {
	d := HighWatermarkDetector{WatermarkColumn: "updated_at"}
	wm := &icebergfmt.Watermark{LastSyncTimestamp: "2026-01-01T00:00:00Z"}
	q := d.Detect("orders", wm)
	if !strings.Contains(q.SQL, "updated_at > ?") {
		t.Errorf("expected a strict inequality predicate, got %q", q.SQL)
	}
	if len(q.Params) != 1 || q.Params[0] != wm.LastSyncTimestamp {
		t.Errorf("expected one param equal to the watermark timestamp, got %v", q.Params)
	}
}

func TestCompositeChangeDetectorFirstCycle(t *testing.T) {
	d := CompositeChangeDetector{WatermarkColumn: "updated_at", IDColumn: "id"}
	q := d.Detect("orders", nil)
	if strings.Contains(q.SQL, "WHERE") {
		t.Errorf("expected a full scan with no WHERE clause on first cycle, got %q", q.SQL)
	}
}

func TestCompositeChangeDetectorTieBreak(t *testing.T) {
	d := CompositeChangeDetector{WatermarkColumn: "updated_at", IDColumn: "id", LastID: 42}
	wm := &icebergfmt.Watermark{LastSyncTimestamp: "2026-01-01T00:00:00Z"}
	q := d.Detect("orders", wm)
	if !strings.Contains(q.SQL, "updated_at > ?") || !strings.Contains(q.SQL, "id > ?") {
		t.Errorf("expected both a watermark and a tie-break predicate, got %q", q.SQL)
	}
	if len(q.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(q.Params))
	}
	if q.Params[2] != int64(42) {
		t.Errorf("expected the third param to be the tie-break id, got %v", q.Params[2])
	}
}
