// Package icebergfmt implements the on-disk Iceberg v2 table format: typed
// schemas, a Parquet data writer that embeds field-ids, an Avro manifest/
// manifest-list codec, a filesystem catalog, and a snapshot-aware reader.
package icebergfmt

import (
	"encoding/json"
	"time"

	"github.com/apache/iceberg-go"
)

// Field is one column of a Schema. Field ids are assigned once at table
// creation and never reused; they are what survives a column rename in real
// Iceberg, though this implementation does not support renames (Non-goal).
type Field struct {
	ID       int
	Name     string
	Required bool
	Type     iceberg.Type
}

type fieldJSON struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

// MarshalJSON renders the field the way Iceberg v2 metadata does: the type
// is its canonical string form ("long", "string", "decimal(9,2)", ...), not
// a nested object.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON{ID: f.ID, Name: f.Name, Required: f.Required, Type: f.Type.String()})
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var fj fieldJSON
	if err := json.Unmarshal(b, &fj); err != nil {
		return err
	}
	t, err := iceberg.ParseType(fj.Type)
	if err != nil {
		return err
	}
	f.ID, f.Name, f.Required, f.Type = fj.ID, fj.Name, fj.Required, t
	return nil
}

// Schema is an ordered sequence of Fields identified by a schema-id. Field
// ids and names are each unique within a schema.
type Schema struct {
	SchemaID int     `json:"schema-id"`
	Type     string  `json:"type"`
	Fields   []Field `json:"fields"`
}

// NewSchema builds a Schema with the conventional "struct" root type.
func NewSchema(schemaID int, fields ...Field) *Schema {
	return &Schema{SchemaID: schemaID, Type: "struct", Fields: fields}
}

// FieldByName returns the field named name, or nil if not present.
func (s *Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldByID returns the field with the given id, or nil if not present.
func (s *Schema) FieldByID(id int) *Field {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}
	return nil
}

// MaxFieldID returns the largest field id in the schema, or 0 if empty.
func (s *Schema) MaxFieldID() int {
	max := 0
	for _, f := range s.Fields {
		if f.ID > max {
			max = f.ID
		}
	}
	return max
}

// PartitionSpec is carried in table metadata for format compatibility;
// partitioning itself is a Non-goal, so every table uses the unpartitioned
// spec (id 0, no fields).
type PartitionSpec struct {
	SpecID int   `json:"spec-id"`
	Fields []any `json:"fields"`
}

// UnpartitionedSpec is the sole partition spec this implementation writes.
var UnpartitionedSpec = PartitionSpec{SpecID: 0, Fields: []any{}}

// Snapshot is one immutable point-in-time view of a table, named by a
// monotonically-assigned 64-bit id.
type Snapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID *int64            `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   int64             `json:"sequence-number"`
	TimestampMs      int64             `json:"timestamp-ms"`
	Summary          map[string]string `json:"summary,omitempty"`
	ManifestList     string            `json:"manifest-list"`
	SchemaID         int               `json:"schema-id"`
}

// TableMetadata is the root `v{N}.metadata.json` object.
type TableMetadata struct {
	FormatVersion      int             `json:"format-version"`
	TableUUID          string          `json:"table-uuid"`
	Location           string          `json:"location"`
	LastUpdatedMs      int64           `json:"last-updated-ms"`
	LastColumnID       int             `json:"last-column-id"`
	LastSequenceNumber int64           `json:"last-sequence-number"`
	Schemas            []Schema        `json:"schemas"`
	CurrentSchemaID    int             `json:"current-schema-id"`
	PartitionSpecs     []PartitionSpec `json:"partition-specs"`
	DefaultSpecID      int             `json:"default-spec-id"`
	LastPartitionID    int             `json:"last-partition-id"`
	Snapshots          []Snapshot      `json:"snapshots"`
	CurrentSnapshotID  *int64          `json:"current-snapshot-id"`
}

// CurrentSchema returns the schema named by CurrentSchemaID, or nil if the
// metadata carries no matching schema (should not happen for valid metadata).
func (m *TableMetadata) CurrentSchema() *Schema {
	for i := range m.Schemas {
		if m.Schemas[i].SchemaID == m.CurrentSchemaID {
			return &m.Schemas[i]
		}
	}
	return nil
}

// CurrentSnapshot returns the snapshot named by CurrentSnapshotID, or nil if
// the table is empty (no committed snapshot yet).
func (m *TableMetadata) CurrentSnapshot() *Snapshot {
	if m.CurrentSnapshotID == nil {
		return nil
	}
	return m.SnapshotByID(*m.CurrentSnapshotID)
}

// SnapshotByID returns the snapshot with the given id, or nil.
func (m *TableMetadata) SnapshotByID(id int64) *Snapshot {
	for i := range m.Snapshots {
		if m.Snapshots[i].SnapshotID == id {
			return &m.Snapshots[i]
		}
	}
	return nil
}

// DataFile describes one Parquet data file referenced by a manifest entry.
// Field names follow the Iceberg v2 manifest schema (snake_case, since Avro
// field names cannot contain hyphens); field-id annotations for these live
// in the Avro schema text (avro_schema.go), not in these Go struct tags.
type DataFile struct {
	Content         int32             `avro:"content"`
	FilePath        string            `avro:"file_path"`
	FileFormat      string            `avro:"file_format"`
	Partition       map[string]string `avro:"partition"`
	RecordCount     int64             `avro:"record_count"`
	FileSizeInBytes int64             `avro:"file_size_in_bytes"`
	ColumnSizes     map[string]int64  `avro:"column_sizes"`
	ValueCounts     map[string]int64  `avro:"value_counts"`
	NullValueCounts map[string]int64  `avro:"null_value_counts"`
	LowerBounds     map[string][]byte `avro:"lower_bounds"`
	UpperBounds     map[string][]byte `avro:"upper_bounds"`
}

// Content values for DataFile.Content. Only data files are produced; the
// others are carried for schema completeness (delete files are a Non-goal).
const (
	ContentData           int32 = 0
	ContentPositionDelete int32 = 1
	ContentEqualityDelete int32 = 2
)

// ManifestEntry is one record in a manifest .avro file.
type ManifestEntry struct {
	Status             int32    `avro:"status"`
	SnapshotID         *int64   `avro:"snapshot_id"`
	DataSequenceNumber *int64   `avro:"data_sequence_number"`
	FileSequenceNumber *int64   `avro:"file_sequence_number"`
	DataFile           DataFile `avro:"data_file"`
}

// Status values for ManifestEntry.Status.
const (
	EntryStatusExisting int32 = 0
	EntryStatusAdded    int32 = 1
	EntryStatusDeleted  int32 = 2
)

// ManifestListEntry is one record in a manifest-list .avro file, describing
// one manifest file.
type ManifestListEntry struct {
	ManifestPath       string `avro:"manifest_path"`
	ManifestLength     int64  `avro:"manifest_length"`
	PartitionSpecID    int32  `avro:"partition_spec_id"`
	AddedFilesCount    int32  `avro:"added_files_count"`
	ExistingFilesCount int32  `avro:"existing_files_count"`
	DeletedFilesCount  int32  `avro:"deleted_files_count"`
	AddedRowsCount     int64  `avro:"added_rows_count"`
	ExistingRowsCount  int64  `avro:"existing_rows_count"`
	DeletedRowsCount   int64  `avro:"deleted_rows_count"`
}

// Watermark is the persisted high-watermark record for one Iceberg table.
type Watermark struct {
	TableName             string    `json:"table-name"`
	LastSyncTimestamp     string    `json:"last-sync-timestamp"`
	LastIcebergSnapshotID int64     `json:"last-iceberg-snapshot-id"`
	RowCount              int64     `json:"row-count"`
	CreatedAt             time.Time `json:"created-at"`
}

// Row is one record as produced by the reader or consumed by the writer:
// field name to value, with nil meaning SQL/Iceberg NULL.
type Row map[string]any
