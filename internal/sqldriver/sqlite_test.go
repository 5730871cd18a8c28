package sqldriver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
)

func TestSQLiteSourceDriverExecuteAndDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")
	driver, err := NewSQLiteSourceDriver(path)
	if err != nil {
		t.Fatalf("NewSQLiteSourceDriver failed: %v", err)
	}
	defer driver.Close()

	ctx := context.Background()
	if _, err := driver.Execute(ctx, "CREATE TABLE orders (id INTEGER, name TEXT)", nil); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if _, err := driver.Execute(ctx, "INSERT INTO orders (id, name) VALUES (1, 'a'), (2, 'b')", nil); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := driver.Execute(ctx, "SELECT * FROM orders", nil)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	defer rows.Close()

	cols, err := driver.Describe(rows)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "name" {
		t.Fatalf("unexpected described columns: %+v", cols)
	}

	count := 0
	for rows.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}

func TestSQLiteTargetDriverImportInsertsAndUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.db")
	target, err := NewSQLiteTargetDriver(path)
	if err != nil {
		t.Fatalf("NewSQLiteTargetDriver failed: %v", err)
	}
	defer target.Close()

	source, err := NewSQLiteSourceDriver(path)
	if err != nil {
		t.Fatalf("NewSQLiteSourceDriver failed: %v", err)
	}
	defer source.Close()

	ctx := context.Background()
	if _, err := source.Execute(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, amount REAL)", nil); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if _, err := source.Execute(ctx, "INSERT INTO orders (id, amount) VALUES (1, 10.0)", nil); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	columns := []icebergfmt.SourceColumn{
		{Name: "id", Type: "INTEGER"},
		{Name: "amount", Type: "REAL"},
	}

	insertRows := []icebergfmt.Row{
		{"id": int64(2), "amount": 20.0},
		{"id": int64(3), "amount": 30.0},
	}
	result, err := target.Import(ctx, "orders", []string{"id"}, columns, insertRows)
	if err != nil {
		t.Fatalf("Import (insert) failed: %v", err)
	}
	if result.Inserted != 2 {
		t.Errorf("expected 2 inserted rows, got %d", result.Inserted)
	}

	updateRows := []icebergfmt.Row{
		{"id": int64(1), "amount": 99.0},
	}
	result2, err := target.Import(ctx, "orders", []string{"id"}, columns, updateRows)
	if err != nil {
		t.Fatalf("Import (update) failed: %v", err)
	}
	if result2.Updated != 1 {
		t.Errorf("expected 1 updated row, got %d", result2.Updated)
	}

	rows, err := source.Execute(ctx, "SELECT amount FROM orders WHERE id = 1", nil)
	if err != nil {
		t.Fatalf("verify select failed: %v", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatal("expected a row for id=1")
	}
	var amount float64
	if err := rows.Scan(&amount); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if amount != 99.0 {
		t.Errorf("expected updated amount 99.0, got %v", amount)
	}
}

func TestSQLiteTargetDriverImportEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.db")
	target, err := NewSQLiteTargetDriver(path)
	if err != nil {
		t.Fatalf("NewSQLiteTargetDriver failed: %v", err)
	}
	defer target.Close()

	result, err := target.Import(context.Background(), "orders", []string{"id"}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error for an empty batch: %v", err)
	}
	if result.Imported != 0 {
		t.Errorf("expected a zero result, got %+v", result)
	}
}
