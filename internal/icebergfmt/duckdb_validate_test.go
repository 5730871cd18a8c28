package icebergfmt

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/apache/iceberg-go"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// TestDuckDBReadsWrittenParquetIndependently is the format-compliance
// property: an independent reader that has never seen this package's
// Parquet writer loads the data files straight off disk and confirms row
// count and a representative column's contents match what the in-process
// Reader produced. A bug that happened to round-trip through our own
// reader but wrote a Parquet file no other engine can open would pass every
// other test in this package and fail only this one.
func TestDuckDBReadsWrittenParquetIndependently(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	w := NewWriter(cat, DefaultWriteOptions())

	schema := NewSchema(0,
		Field{ID: 1, Name: "id", Required: true, Type: iceberg.PrimitiveTypes.Int64},
		Field{ID: 2, Name: "label", Required: false, Type: iceberg.PrimitiveTypes.String},
	)
	rows := []Row{
		{"id": int64(1), "label": "a_Updated"},
		{"id": int64(2), "label": "b"},
		{"id": int64(3), "label": "c_Updated"},
	}
	if _, err := w.CreateInitial("duckdb_check", schema, rows); err != nil {
		t.Fatalf("CreateInitial failed: %v", err)
	}

	reader := NewReader(cat, "duckdb_check")
	var ourRows []Row
	if err := reader.ReadAll(context.Background(), func(r Row) error {
		ourRows = append(ourRows, r)
		return nil
	}); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	meta, err := cat.LoadTable("duckdb_check")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	manifestListEntries, err := ReadManifestList(meta.CurrentSnapshot().ManifestList)
	if err != nil {
		t.Fatalf("ReadManifestList failed: %v", err)
	}
	entries, err := ReadManifest(manifestListEntries[0].ManifestPath)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single data file for one batch, got %d", len(entries))
	}
	dataFilePath := entries[0].DataFile.FilePath

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	defer db.Close()

	var rowCount int
	if err := db.QueryRow(fmt.Sprintf("SELECT count(*) FROM read_parquet('%s')", dataFilePath)).Scan(&rowCount); err != nil {
		t.Fatalf("duckdb count query failed: %v", err)
	}
	if rowCount != len(ourRows) {
		t.Errorf("duckdb reports %d rows, our reader reported %d", rowCount, len(ourRows))
	}

	var updatedCount int
	if err := db.QueryRow(fmt.Sprintf(
		"SELECT count(*) FROM read_parquet('%s') WHERE label LIKE '%%_Updated'", dataFilePath,
	)).Scan(&updatedCount); err != nil {
		t.Fatalf("duckdb suffix query failed: %v", err)
	}

	ourUpdatedCount := 0
	for _, r := range ourRows {
		if label, ok := r["label"].(string); ok && len(label) >= 8 && label[len(label)-8:] == "_Updated" {
			ourUpdatedCount++
		}
	}
	if updatedCount != ourUpdatedCount {
		t.Errorf("duckdb reports %d '_Updated'-suffixed rows, our reader reported %d", updatedCount, ourUpdatedCount)
	}
}
