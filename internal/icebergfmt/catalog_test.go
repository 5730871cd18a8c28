package icebergfmt

import (
	"testing"
)

func sampleMetadata() *TableMetadata {
	return &TableMetadata{
		FormatVersion:   2,
		TableUUID:       "00000000-0000-0000-0000-000000000001",
		Location:        "orders",
		LastColumnID:    1,
		Schemas:         []Schema{*NewSchema(0, Field{ID: 1, Name: "id", Required: true})},
		CurrentSchemaID: 0,
		PartitionSpecs:  []PartitionSpec{UnpartitionedSpec},
		DefaultSpecID:   0,
	}
}

func TestCatalogInitializeTableCreatesDirs(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	if err := cat.InitializeTable("orders"); err != nil {
		t.Fatalf("InitializeTable failed: %v", err)
	}
	if cat.TableExists("orders") {
		t.Error("a freshly initialized table with no commits should not exist yet")
	}
	// calling twice is a no-op
	if err := cat.InitializeTable("orders"); err != nil {
		t.Fatalf("InitializeTable should be idempotent, got: %v", err)
	}
}

func TestCatalogCommitAndLoad(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	if err := cat.InitializeTable("orders"); err != nil {
		t.Fatalf("InitializeTable failed: %v", err)
	}

	meta := sampleMetadata()
	version, err := cat.Commit("orders", meta)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected first commit to be version 1, got %d", version)
	}

	if !cat.TableExists("orders") {
		t.Fatal("expected table to exist after a commit")
	}

	loaded, err := cat.LoadTable("orders")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if loaded == nil || loaded.TableUUID != meta.TableUUID {
		t.Fatalf("unexpected loaded metadata: %+v", loaded)
	}

	meta2 := sampleMetadata()
	meta2.LastColumnID = 2
	version2, err := cat.Commit("orders", meta2)
	if err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
	if version2 != 2 {
		t.Errorf("expected second commit to be version 2, got %d", version2)
	}

	loaded2, err := cat.LoadTable("orders")
	if err != nil {
		t.Fatalf("LoadTable after second commit failed: %v", err)
	}
	if loaded2.LastColumnID != 2 {
		t.Errorf("expected to load the latest commit, got LastColumnID=%d", loaded2.LastColumnID)
	}
}

func TestCatalogLoadTableMissingReturnsNil(t *testing.T) {
	cat := NewCatalog(t.TempDir())
	meta, err := cat.LoadTable("nonexistent")
	if err != nil {
		t.Fatalf("expected no error for an uninitialized table, got: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata for an uninitialized table, got %+v", meta)
	}
}

func TestCatalogDataAndManifestDirs(t *testing.T) {
	cat := NewCatalog("/warehouse")
	if got := cat.DataDir("orders"); got != "/warehouse/orders/data" {
		t.Errorf("unexpected data dir: %q", got)
	}
	if got := cat.ManifestDir("orders"); got != "/warehouse/orders/metadata" {
		t.Errorf("unexpected manifest dir: %q", got)
	}
}
