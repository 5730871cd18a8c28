package icebergfmt

import (
	"context"
	"testing"

	"github.com/apache/iceberg-go"
)

func ordersSchema() *Schema {
	return NewSchema(0,
		Field{ID: 1, Name: "id", Required: true, Type: iceberg.PrimitiveTypes.Int64},
		Field{ID: 2, Name: "amount", Required: false, Type: iceberg.PrimitiveTypes.Float64},
	)
}

func TestWriterCreateInitialAndAppend(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	w := NewWriter(cat, DefaultWriteOptions())

	schema := ordersSchema()
	rows := []Row{
		{"id": int64(1), "amount": 10.5},
		{"id": int64(2), "amount": 20.0},
	}

	meta, err := w.CreateInitial("orders", schema, rows)
	if err != nil {
		t.Fatalf("CreateInitial failed: %v", err)
	}
	if meta.CurrentSnapshot() == nil {
		t.Fatal("expected a current snapshot after creating with rows")
	}
	if meta.CurrentSnapshot().SequenceNumber != 1 {
		t.Errorf("expected first snapshot sequence number 1, got %d", meta.CurrentSnapshot().SequenceNumber)
	}

	firstSnapshotID := meta.CurrentSnapshot().SnapshotID

	more := []Row{{"id": int64(3), "amount": 30.0}}
	meta2, err := w.Append(context.Background(), "orders", more)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(meta2.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots after append, got %d", len(meta2.Snapshots))
	}
	if meta2.CurrentSnapshot().ParentSnapshotID == nil || *meta2.CurrentSnapshot().ParentSnapshotID != firstSnapshotID {
		t.Error("expected the second snapshot's parent to be the first snapshot")
	}

	reader := NewReader(cat, "orders")
	var gotRows []Row
	if err := reader.ReadAll(context.Background(), func(r Row) error {
		gotRows = append(gotRows, r)
		return nil
	}); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(gotRows) != 3 {
		t.Fatalf("expected 3 rows across both snapshots (carry-forward), got %d", len(gotRows))
	}

	snapshots, err := reader.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots listed, got %d", len(snapshots))
	}

	var firstSnapRows []Row
	if err := reader.ReadAsOf(context.Background(), &firstSnapshotID, func(r Row) error {
		firstSnapRows = append(firstSnapRows, r)
		return nil
	}); err != nil {
		t.Fatalf("ReadAsOf(first snapshot) failed: %v", err)
	}
	if len(firstSnapRows) != 2 {
		t.Errorf("expected 2 rows as of the first snapshot, got %d", len(firstSnapRows))
	}
}

func TestWriterCreateInitialEmptyBatchNoSnapshot(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	w := NewWriter(cat, DefaultWriteOptions())

	meta, err := w.CreateInitial("empty_table", ordersSchema(), nil)
	if err != nil {
		t.Fatalf("CreateInitial with no rows failed: %v", err)
	}
	if meta.CurrentSnapshot() != nil {
		t.Error("expected no current snapshot for a table created with an empty batch")
	}
}

func TestWriterAppendEmptyBatchIsNoOp(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	w := NewWriter(cat, DefaultWriteOptions())

	schema := ordersSchema()
	meta, err := w.CreateInitial("orders", schema, []Row{{"id": int64(1), "amount": 1.0}})
	if err != nil {
		t.Fatalf("CreateInitial failed: %v", err)
	}
	snapshotCount := len(meta.Snapshots)

	meta2, err := w.Append(context.Background(), "orders", nil)
	if err != nil {
		t.Fatalf("Append with an empty batch should not error: %v", err)
	}
	if len(meta2.Snapshots) != snapshotCount {
		t.Errorf("expected an empty append to be a no-op, snapshot count changed from %d to %d", snapshotCount, len(meta2.Snapshots))
	}
}

func TestWriterAppendToMissingTableFails(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	w := NewWriter(cat, DefaultWriteOptions())

	_, err := w.Append(context.Background(), "does_not_exist", []Row{{"id": int64(1)}})
	if err == nil {
		t.Fatal("expected an error appending to a table that was never created")
	}
}
