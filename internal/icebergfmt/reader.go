package icebergfmt

import (
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var ErrUnknownSnapshot = icebergerrors.MustNewCode("icebergfmt.unknown_snapshot")

// Reader streams rows out of one table at a given (or current) snapshot.
// It must not assume a snapshot's manifest list references only newly added
// files: manifest lists accumulate carried-forward manifests across
// appends (see append.go), so a reader that only follows "the latest
// manifest" silently drops every row committed before the most recent one.
type Reader struct {
	catalog *Catalog
	table   string
}

// NewReader returns a Reader for table, rooted at catalog.
func NewReader(catalog *Catalog, table string) *Reader {
	return &Reader{catalog: catalog, table: table}
}

// ListSnapshots returns every snapshot recorded in the table's metadata,
// oldest first.
func (r *Reader) ListSnapshots() ([]Snapshot, error) {
	meta, err := r.catalog.LoadTable(r.table)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, icebergerrors.New(ErrTableNotFound, "table does not exist", nil).AddContext("table", r.table)
	}
	out := make([]Snapshot, len(meta.Snapshots))
	copy(out, meta.Snapshots)
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

// ReadAll streams every row visible at the table's current snapshot.
func (r *Reader) ReadAll(ctx context.Context, onRow func(Row) error) error {
	return r.ReadAsOf(ctx, nil, onRow)
}

// ReadAsOf streams every row visible at snapshotID, or the current snapshot
// if snapshotID is nil.
func (r *Reader) ReadAsOf(ctx context.Context, snapshotID *int64, onRow func(Row) error) error {
	meta, err := r.catalog.LoadTable(r.table)
	if err != nil {
		return err
	}
	if meta == nil {
		return icebergerrors.New(ErrTableNotFound, "table does not exist", nil).AddContext("table", r.table)
	}

	var snap *Snapshot
	if snapshotID != nil {
		snap = meta.SnapshotByID(*snapshotID)
		if snap == nil {
			return icebergerrors.New(ErrUnknownSnapshot, "no such snapshot", nil).
				AddContext("table", r.table).AddContext("snapshot_id", *snapshotID)
		}
	} else {
		snap = meta.CurrentSnapshot()
	}
	if snap == nil {
		// Table exists but has never had a successful commit; nothing to
		// stream.
		return nil
	}

	schema := meta.CurrentSchema()
	if schema == nil {
		return icebergerrors.New(ErrCatalogInternal, "metadata has no current schema", nil).AddContext("table", r.table)
	}

	manifestListEntries, err := ReadManifestList(snap.ManifestList)
	if err != nil {
		return err
	}

	for _, mle := range manifestListEntries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := ReadManifest(mle.ManifestPath)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Status == EntryStatusDeleted {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.readDataFile(ctx, entry.DataFile.FilePath, schema, onRow); err != nil {
				return err
			}
		}
	}
	return nil
}

// readDataFile streams every row of one Parquet data file, row group by row
// group, transposing each group's columnar record into row maps.
func (r *Reader) readDataFile(ctx context.Context, path string, schema *Schema, onRow func(Row) error) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "failed to open parquet data file for read", err).AddContext("path", path)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "failed to build arrow reader", err).AddContext("path", path)
	}

	recReader, err := arrowRdr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "failed to build record reader", err).AddContext("path", path)
	}
	defer recReader.Release()

	for recReader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := recReader.Record()
		rows, err := recordToRows(rec, schema)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := onRow(row); err != nil {
				return err
			}
		}
	}
	if err := recReader.Err(); err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "record reader error", err).AddContext("path", path)
	}
	return nil
}

// recordToRows transposes one columnar Arrow record into row maps keyed by
// field name, the inverse of rowsToRecord in parquet_writer.go. A null
// definition level becomes a nil map entry, distinct from a zero value.
func recordToRows(rec arrow.Record, schema *Schema) ([]Row, error) {
	n := int(rec.NumRows())
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = make(Row, len(schema.Fields))
	}

	for colIdx, field := range schema.Fields {
		if colIdx >= int(rec.NumCols()) {
			continue
		}
		col := rec.Column(colIdx)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				rows[i][field.Name] = nil
				continue
			}
			v, err := columnValue(col, i)
			if err != nil {
				return nil, icebergerrors.New(ErrSchemaMismatch, "failed to read column value", err).
					AddContext("field", field.Name)
			}
			rows[i][field.Name] = v
		}
	}
	return rows, nil
}

func columnValue(col arrow.Array, i int) (any, error) {
	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Binary:
		return a.Value(i), nil
	case *array.FixedSizeBinary:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i).ToTime(), nil
	case *array.Timestamp:
		ts, ok := a.DataType().(*arrow.TimestampType)
		if !ok {
			return nil, fmt.Errorf("timestamp column missing timestamp type")
		}
		return a.Value(i).ToTime(ts.Unit), nil
	case *array.Decimal128:
		dt, ok := a.DataType().(*arrow.Decimal128Type)
		if !ok {
			return nil, fmt.Errorf("decimal column missing decimal type")
		}
		return a.Value(i).ToString(dt.Scale), nil
	default:
		return nil, fmt.Errorf("unsupported column array type %T", col)
	}
}
