package syncengine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	"github.com/gear6io/syncbridge/internal/sqldriver"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *sqldriver.SQLiteSourceDriver, Options) {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.db")
	targetPath := filepath.Join(dir, "target.db")

	source, err := sqldriver.NewSQLiteSourceDriver(sourcePath)
	if err != nil {
		t.Fatalf("NewSQLiteSourceDriver failed: %v", err)
	}
	t.Cleanup(func() { source.Close() })

	target, err := sqldriver.NewSQLiteTargetDriver(targetPath)
	if err != nil {
		t.Fatalf("NewSQLiteTargetDriver failed: %v", err)
	}
	t.Cleanup(func() { target.Close() })

	ctx := context.Background()
	if _, err := source.Execute(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, amount REAL, updated_at TEXT)", nil); err != nil {
		t.Fatalf("source create table failed: %v", err)
	}
	targetSource, err := sqldriver.NewSQLiteSourceDriver(targetPath)
	if err != nil {
		t.Fatalf("NewSQLiteSourceDriver (target) failed: %v", err)
	}
	t.Cleanup(func() { targetSource.Close() })
	if _, err := targetSource.Execute(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, amount REAL, updated_at TEXT)", nil); err != nil {
		t.Fatalf("target create table failed: %v", err)
	}

	catalog := icebergfmt.NewCatalog(filepath.Join(dir, "warehouse"))
	writer := icebergfmt.NewWriter(catalog, icebergfmt.DefaultWriteOptions())
	wm, err := NewWatermarkStore(filepath.Join(dir, "watermarks"))
	if err != nil {
		t.Fatalf("NewWatermarkStore failed: %v", err)
	}

	detector := HighWatermarkDetector{WatermarkColumn: "updated_at"}
	coord := NewCoordinator(source, target, catalog, writer, wm, detector, zerolog.Nop())

	opts := Options{
		SourceTable:      "orders",
		IcebergTable:     "orders",
		TargetTable:      "orders",
		PrimaryKeyColumn: []string{"id"},
		WatermarkColumn:  "updated_at",
	}
	return coord, source, opts
}

func TestCoordinatorSyncFirstCycleAndIncremental(t *testing.T) {
	coord, source, opts := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := source.Execute(ctx, "INSERT INTO orders (id, amount, updated_at) VALUES (1, 10.0, '2026-01-01T00:00:00Z'), (2, 20.0, '2026-01-01T00:00:00Z')", nil); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	res := coord.Sync(ctx, opts)
	if !res.Success {
		t.Fatalf("expected first sync to succeed, got error: %s", res.ErrorMessage)
	}
	if res.Extracted != 2 {
		t.Errorf("expected 2 extracted rows, got %d", res.Extracted)
	}
	if res.NewWatermark == nil {
		t.Fatal("expected a new watermark after a successful sync")
	}

	if _, err := source.Execute(ctx, "INSERT INTO orders (id, amount, updated_at) VALUES (3, 30.0, '2026-01-02T00:00:00Z')", nil); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	res2 := coord.Sync(ctx, opts)
	if !res2.Success {
		t.Fatalf("expected second sync to succeed, got error: %s", res2.ErrorMessage)
	}
	if res2.Extracted != 1 {
		t.Errorf("expected incremental sync to extract only the new row, got %d", res2.Extracted)
	}
}

func TestCoordinatorSyncEmptyDeltaIsSuccessNoOp(t *testing.T) {
	coord, _, opts := newTestCoordinator(t)
	res := coord.Sync(context.Background(), opts)
	if !res.Success {
		t.Fatalf("expected an empty-delta cycle to be a successful no-op, got: %s", res.ErrorMessage)
	}
	if res.Extracted != 0 {
		t.Errorf("expected 0 extracted rows, got %d", res.Extracted)
	}
}

func TestCoordinatorSyncRejectsOversizedDelta(t *testing.T) {
	coord, source, opts := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := source.Execute(ctx, "INSERT INTO orders (id, amount, updated_at) VALUES (1, 1.0, '2026-01-01T00:00:00Z'), (2, 2.0, '2026-01-01T00:00:00Z')", nil); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	opts.MaxDeltaRows = 1
	res := coord.Sync(ctx, opts)
	if res.Success {
		t.Fatal("expected the cycle to fail when the delta exceeds MaxDeltaRows")
	}
}

func TestCoordinatorSyncFailsOnUnmappableColumnType(t *testing.T) {
	coord, source, opts := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := source.Execute(ctx, "ALTER TABLE orders ADD COLUMN shape GEOMETRY", nil); err != nil {
		t.Fatalf("add column failed: %v", err)
	}
	if _, err := source.Execute(ctx, "INSERT INTO orders (id, amount, updated_at, shape) VALUES (1, 10.0, '2026-01-01T00:00:00Z', 'POINT(0 0)')", nil); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	res := coord.Sync(ctx, opts)
	if res.Success {
		t.Fatal("expected the first cycle to fail when a source column has no iceberg type mapping")
	}
	if res.NewWatermark != nil {
		t.Fatal("expected no watermark advance on a failed schema inference")
	}
}

func TestCoordinatorSyncCancelledContext(t *testing.T) {
	coord, _, opts := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := coord.Sync(ctx, opts)
	if res.Success {
		t.Fatal("expected a cancelled context to fail the cycle")
	}
}
