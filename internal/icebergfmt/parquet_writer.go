package icebergfmt

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	icebergtype "github.com/apache/iceberg-go"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var (
	ErrParquetWriteFailed = icebergerrors.MustNewCode("icebergfmt.parquet_write_failed")
	ErrSchemaMismatch     = icebergerrors.MustNewCode("icebergfmt.schema_mismatch")
)

// fieldIDKey is the Arrow field-metadata key arrow-go/v18's Parquet schema
// converter recognises and carries through to the physical Parquet schema's
// field_id. The teacher's equivalent writer stamps the id under the
// non-standard key "iceberg_id", which the Parquet converter ignores, so
// none of the teacher's files are actually field-id compliant; this uses
// the real convention instead.
const fieldIDKey = "PARQUET:field_id"

// CompressionCodec names the supported Parquet page compression codecs.
type CompressionCodec string

const (
	CompressionUncompressed CompressionCodec = "UNCOMPRESSED"
	CompressionSnappy       CompressionCodec = "SNAPPY"
	CompressionZSTD         CompressionCodec = "ZSTD"
	CompressionGzip         CompressionCodec = "GZIP"
)

// WriteOptions controls the Parquet writer's batching and compression.
type WriteOptions struct {
	Compression CompressionCodec
	// RowGroupSize bounds rows buffered before a row group is flushed.
	RowGroupSize int
}

// DefaultWriteOptions mirrors the teacher's default (a size-bounded row
// group, ZSTD compression) per §4.2's "100k rows or 128MB, whichever first"
// suggestion — this implementation buffers by row count only, leaving size
// bounding to the coordinator's MaxDeltaRows guard upstream.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Compression: CompressionZSTD, RowGroupSize: 100_000}
}

func (c CompressionCodec) compressCodec() compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionZSTD:
		return compress.Codecs.Zstd
	case CompressionGzip:
		return compress.Codecs.Gzip
	default:
		return compress.Codecs.Uncompressed
	}
}

// ColumnStats are the per-column statistics §4.2 requires the writer to
// return, read back from the written file's row groups rather than
// accumulated during the write loop, so they match what an independent
// Parquet reader computes.
type ColumnStats struct {
	ValueCount      int64
	NullCount       int64
	Min             []byte
	Max             []byte
	CompressedBytes int64
}

// FileStats is the per-file metadata returned by WriteFile.
type FileStats struct {
	Path        string
	SizeBytes   int64
	RecordCount int64
	Columns     map[string]ColumnStats // keyed by field name
}

// ToArrowSchema converts an icebergfmt Schema to an Arrow schema whose
// fields carry the Iceberg field-id under fieldIDKey, the key Arrow's own
// Parquet writer recognises.
func ToArrowSchema(schema *Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(schema.Fields))
	for i, f := range schema.Fields {
		at, err := toArrowType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{
			Name:     f.Name,
			Type:     at,
			Nullable: !f.Required,
			Metadata: arrow.MetadataFrom(map[string]string{
				fieldIDKey: fmt.Sprintf("%d", f.ID),
			}),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

func toArrowType(t icebergtype.Type) (arrow.DataType, error) {
	switch t {
	case icebergtype.PrimitiveTypes.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case icebergtype.PrimitiveTypes.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case icebergtype.PrimitiveTypes.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case icebergtype.PrimitiveTypes.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case icebergtype.PrimitiveTypes.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case icebergtype.PrimitiveTypes.String:
		return arrow.BinaryTypes.String, nil
	case icebergtype.PrimitiveTypes.Binary:
		return arrow.BinaryTypes.Binary, nil
	case icebergtype.PrimitiveTypes.Date:
		return arrow.FixedWidthTypes.Date32, nil
	case icebergtype.PrimitiveTypes.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case icebergtype.PrimitiveTypes.TimestampTz:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	case icebergtype.PrimitiveTypes.UUID:
		return &arrow.FixedSizeBinaryType{ByteWidth: 16}, nil
	default:
		if dt, ok := t.(icebergtype.DecimalType); ok {
			return &arrow.Decimal128Type{Precision: int32(dt.Precision()), Scale: int32(dt.Scale())}, nil
		}
		return nil, icebergerrors.New(ErrUnsupportedType, "no arrow type mapping for iceberg type", nil).
			AddContext("iceberg_type", t.String())
	}
}

// WriteFile writes rows (each must carry a value for every field in schema,
// or nil for an optional field) to a new Parquet file at path. Rows are
// buffered into row groups of opts.RowGroupSize; a zero-row input yields a
// file with header/footer but no row groups, matching §4.2.
func WriteFile(ctx context.Context, path string, schema *Schema, rows []Row, opts WriteOptions) (*FileStats, error) {
	arrowSchema, err := ToArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to create parquet file", err).AddContext("path", path)
	}
	defer f.Close()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression.compressCodec()),
		parquet.WithMaxRowGroupLength(int64(rowGroupSizeOrDefault(opts))),
	)
	writer, err := pqarrow.NewFileWriter(arrowSchema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to create parquet writer", err).AddContext("path", path)
	}

	pool := memory.NewGoAllocator()
	rowGroupSize := rowGroupSizeOrDefault(opts)

	for start := 0; start < len(rows); start += rowGroupSize {
		end := start + rowGroupSize
		if end > len(rows) {
			end = len(rows)
		}
		select {
		case <-ctx.Done():
			writer.Close()
			return nil, ctx.Err()
		default:
		}

		record, err := rowsToRecord(pool, arrowSchema, schema, rows[start:end])
		if err != nil {
			writer.Close()
			return nil, err
		}
		err = writer.Write(record)
		record.Release()
		if err != nil {
			writer.Close()
			return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to write row group", err).AddContext("path", path)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to close parquet writer", err).AddContext("path", path)
	}

	if err := verifyFieldIDCompliance(path, schema); err != nil {
		return nil, err
	}

	return readBackStats(path, schema)
}

// verifyFieldIDCompliance reopens the just-written file and walks its
// physical schema, confirming every leaf column carries the field-id
// fieldIDKey asked Arrow's converter to stamp. §4.2 requires files lacking
// field ids be rejected by the writer's self-test rather than committed to
// a manifest; a mismatch here means the converter silently dropped or
// reordered the metadata, which would otherwise surface much later as
// unreadable historical data.
func verifyFieldIDCompliance(path string, schema *Schema) error {
	f, err := os.Open(path)
	if err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "failed to reopen parquet file for field-id check", err).AddContext("path", path)
	}
	defer f.Close()

	reader, err := file.NewParquetReader(f)
	if err != nil {
		return icebergerrors.New(ErrParquetWriteFailed, "failed to open parquet reader for field-id check", err).AddContext("path", path)
	}
	defer reader.Close()

	physical := reader.MetaData().Schema
	if physical.NumColumns() != len(schema.Fields) {
		return icebergerrors.New(ErrSchemaMismatch, "written file's physical column count does not match schema", nil).
			AddContext("path", path).
			AddContext("want_columns", fmt.Sprintf("%d", len(schema.Fields))).
			AddContext("got_columns", fmt.Sprintf("%d", physical.NumColumns()))
	}

	for i, field := range schema.Fields {
		node := physical.Column(i).SchemaNode()
		if node.FieldID() != int32(field.ID) {
			return icebergerrors.New(ErrSchemaMismatch, "written column is missing its iceberg field id", nil).
				AddContext("path", path).
				AddContext("field", field.Name).
				AddContext("want_field_id", fmt.Sprintf("%d", field.ID)).
				AddContext("got_field_id", fmt.Sprintf("%d", node.FieldID()))
		}
	}
	return nil
}

func rowGroupSizeOrDefault(opts WriteOptions) int {
	if opts.RowGroupSize <= 0 {
		return DefaultWriteOptions().RowGroupSize
	}
	return opts.RowGroupSize
}

// rowsToRecord transposes a slice of Rows into one Arrow record, column by
// column, the inverse of the teacher's convertDataToArrays.
func rowsToRecord(pool memory.Allocator, arrowSchema *arrow.Schema, schema *Schema, rows []Row) (arrow.Record, error) {
	cols := make([]arrow.Array, len(schema.Fields))
	for i, field := range schema.Fields {
		arrowField := arrowSchema.Field(i)
		builder := array.NewBuilder(pool, arrowField.Type)
		for _, row := range rows {
			v, present := row[field.Name]
			if !present || v == nil {
				if field.Required {
					builder.Release()
					return nil, icebergerrors.New(ErrSchemaMismatch, "required field missing value", nil).
						AddContext("field", field.Name)
				}
				builder.AppendNull()
				continue
			}
			if err := appendValue(builder, arrowField.Type, v); err != nil {
				builder.Release()
				return nil, icebergerrors.New(ErrSchemaMismatch, "value incompatible with field type", err).
					AddContext("field", field.Name)
			}
		}
		arr := builder.NewArray()
		builder.Release()
		cols[i] = arr
	}
	rec := array.NewRecord(arrowSchema, cols, int64(len(rows)))
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}

func appendValue(b array.Builder, t arrow.DataType, v any) error {
	switch bb := b.(type) {
	case *array.BooleanBuilder:
		val, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		bb.Append(val)
	case *array.Int32Builder:
		val, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bb.Append(int32(val))
	case *array.Int64Builder:
		val, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bb.Append(val)
	case *array.Float32Builder:
		val, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("expected float, got %T", v)
		}
		bb.Append(float32(val))
	case *array.Float64Builder:
		val, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("expected float, got %T", v)
		}
		bb.Append(val)
	case *array.StringBuilder:
		val, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		bb.Append(val)
	case *array.BinaryBuilder:
		val, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", v)
		}
		bb.Append(val)
	case *array.FixedSizeBinaryBuilder:
		val, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", v)
		}
		bb.Append(val)
	case *array.Date32Builder:
		val, ok := toDate32(v)
		if !ok {
			return fmt.Errorf("expected date-like value, got %T", v)
		}
		bb.Append(val)
	case *array.TimestampBuilder:
		val, ok := toTimestamp(v, t)
		if !ok {
			return fmt.Errorf("expected time-like value, got %T", v)
		}
		bb.Append(val)
	case *array.Decimal128Builder:
		val, ok := toDecimal128(v, t)
		if !ok {
			return fmt.Errorf("expected decimal-like value, got %T", v)
		}
		bb.Append(val)
	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}

// readBackStats reopens the just-written file and pulls per-column
// statistics from the physical row groups, so the returned bounds/null
// counts are exactly what an independent reader would also compute.
func readBackStats(path string, schema *Schema) (*FileStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to stat written parquet file", err).AddContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to reopen parquet file for stats", err).AddContext("path", path)
	}
	defer f.Close()

	reader, err := file.NewParquetReader(f)
	if err != nil {
		return nil, icebergerrors.New(ErrParquetWriteFailed, "failed to open parquet reader for stats", err).AddContext("path", path)
	}
	defer reader.Close()

	stats := &FileStats{Path: path, SizeBytes: info.Size(), Columns: make(map[string]ColumnStats, len(schema.Fields))}

	numRowGroups := reader.NumRowGroups()
	var total int64
	for rg := 0; rg < numRowGroups; rg++ {
		rgReader := reader.RowGroup(rg)
		rgMeta := rgReader.MetaData()
		total += rgMeta.NumRows

		for colIdx, field := range schema.Fields {
			chunkMeta, err := rgMeta.ColumnChunk(colIdx)
			if err != nil {
				continue
			}
			cur := stats.Columns[field.Name]
			cur.ValueCount += chunkMeta.NumValues()

			colStats, err := chunkMeta.Statistics()
			if err != nil || colStats == nil {
				stats.Columns[field.Name] = cur
				continue
			}
			cur.NullCount += colStats.NullCount()
			if colStats.HasMinMax() {
				if minBytes := colStats.EncodeMin(); len(minBytes) > 0 && (cur.Min == nil || lessBytes(minBytes, cur.Min)) {
					cur.Min = minBytes
				}
				if maxBytes := colStats.EncodeMax(); len(maxBytes) > 0 && (cur.Max == nil || lessBytes(cur.Max, maxBytes)) {
					cur.Max = maxBytes
				}
			}
			stats.Columns[field.Name] = cur
		}
	}
	stats.RecordCount = total
	return stats, nil
}

func lessBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
