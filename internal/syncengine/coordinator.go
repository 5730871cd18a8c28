package syncengine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	"github.com/gear6io/syncbridge/internal/sqldriver"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var (
	ErrDeltaTooLarge         = icebergerrors.MustNewCode("syncengine.delta_too_large")
	ErrCancelled             = icebergerrors.MustNewCode("syncengine.cancelled")
	ErrSchemaInferenceFailed = icebergerrors.MustNewCode("syncengine.schema_inference_failed")
)

// Options configures one table's sync cycle: the source table/column names
// change detection and the importer need, and the two warehouse paths the
// catalog and watermark store are rooted at.
type Options struct {
	SourceTable        string
	IcebergTable       string
	TargetTable        string
	PrimaryKeyColumn   []string
	WatermarkColumn    string
	WarehousePath      string
	WatermarkDirectory string
	// MaxDeltaRows bounds the buffered delta; 0 means unbounded. Exceeding
	// it aborts the cycle before any Iceberg or target I/O.
	MaxDeltaRows int
}

// Result is the outcome of one Sync call.
type Result struct {
	Success       bool
	Extracted     int64
	Appended      int64
	Imported      int64
	Inserted      int64
	Updated       int64
	NewSnapshotID *int64
	NewWatermark  *icebergfmt.Watermark
	Duration      time.Duration
	ErrorMessage  string
}

// Coordinator ties change detection, the Iceberg writer, and the importer
// into a single cycle: one instance is the unit of concurrency for one
// (source-table, iceberg-table, target-table) triple. Concurrent calls to
// Sync for the same triple are the caller's responsibility to serialize —
// same-table concurrency is unsupported, matching §5.
type Coordinator struct {
	source   sqldriver.SourceDriver
	target   *Importer
	catalog  *icebergfmt.Catalog
	writer   *icebergfmt.Writer
	wm       *WatermarkStore
	detector ChangeDetector
	logger   zerolog.Logger
	retry    RetryConfig
}

// NewCoordinator assembles a Coordinator from its collaborators.
func NewCoordinator(source sqldriver.SourceDriver, target sqldriver.TargetDriver, catalog *icebergfmt.Catalog, writer *icebergfmt.Writer, wm *WatermarkStore, detector ChangeDetector, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		source:   source,
		target:   NewImporter(target),
		catalog:  catalog,
		writer:   writer,
		wm:       wm,
		detector: detector,
		logger:   logger,
		retry:    DefaultRetryConfig(),
	}
}

// Sync runs one extract/append/merge/advance cycle for opts against ctx's
// cancellation signal. Cancellation delivered before the Iceberg write
// aborts cleanly with no state change; cancellation during the write/merge
// unwinds per that operation's own contract.
func (c *Coordinator) Sync(ctx context.Context, opts Options) Result {
	start := time.Now()
	res := c.sync(ctx, opts)
	res.Duration = time.Since(start)
	return res
}

func (c *Coordinator) sync(ctx context.Context, opts Options) Result {
	log := c.logger.With().Str("table", opts.IcebergTable).Logger()

	watermark, err := c.wm.Get(opts.IcebergTable)
	if err != nil {
		return failure(err, "watermark load")
	}
	log.Info().Msg("watermark loaded")

	if err := ctx.Err(); err != nil {
		return failure(icebergerrors.New(ErrCancelled, "cancelled before extraction", err), "cancellation")
	}

	query := c.detector.Detect(opts.SourceTable, watermark)

	var delta []icebergfmt.Row
	var columns []icebergfmt.SourceColumn
	err = RetryWithBackoff(ctx, c.retry, log, func(ctx context.Context) error {
		rows, err := c.source.Execute(ctx, query.SQL, query.Params)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err = c.source.Describe(rows)
		if err != nil {
			return err
		}
		delta, err = scanDelta(rows, columns)
		return err
	})
	if err != nil {
		return failure(icebergerrors.New(sqldriver.ErrSourceQueryFailed, "extraction failed", err).AddContext("table", opts.IcebergTable), "extraction")
	}

	if opts.MaxDeltaRows > 0 && len(delta) > opts.MaxDeltaRows {
		return failure(icebergerrors.New(ErrDeltaTooLarge, "delta exceeds configured row limit", nil).
			AddContext("table", opts.IcebergTable).AddContext("rows", len(delta)).AddContext("limit", opts.MaxDeltaRows), "extraction")
	}

	if len(delta) == 0 {
		log.Info().Msg("empty delta, cycle skipped")
		return Result{Success: true}
	}
	log.Info().Int("rows", len(delta)).Msg("extraction complete")

	maxW := maxWatermarkValue(delta, opts.WatermarkColumn)

	if err := ctx.Err(); err != nil {
		return failure(icebergerrors.New(ErrCancelled, "cancelled before iceberg write", err), "cancellation")
	}

	meta, err := c.catalog.LoadTable(opts.IcebergTable)
	if err != nil {
		return failure(err, "iceberg load")
	}

	var newMeta *icebergfmt.TableMetadata
	if meta == nil {
		var schema *icebergfmt.Schema
		schema, err = inferSchema(columns)
		if err != nil {
			return failure(icebergerrors.New(ErrSchemaInferenceFailed, "failed to infer initial schema", err).
				AddContext("table", opts.IcebergTable), "schema inference")
		}
		newMeta, err = c.writer.CreateInitial(opts.IcebergTable, schema, delta)
	} else {
		newMeta, err = c.writer.Append(ctx, opts.IcebergTable, delta)
	}
	if err != nil {
		return failure(icebergerrors.New(icebergfmt.ErrCatalogInternal, "iceberg append failed", err).AddContext("table", opts.IcebergTable), "iceberg append")
	}
	newSnapshotID := newMeta.CurrentSnapshotID
	log.Info().Int64("snapshot_id", derefOrZero(newSnapshotID)).Msg("append complete")

	var importResult sqldriver.ImportResult
	err = RetryWithBackoff(ctx, c.retry, log, func(ctx context.Context) error {
		var err error
		importResult, err = c.target.Import(ctx, opts.TargetTable, opts.PrimaryKeyColumn, columns, delta)
		return err
	})
	if err != nil {
		return failure(err, "target merge")
	}
	log.Info().Int64("inserted", importResult.Inserted).Int64("updated", importResult.Updated).Msg("merge complete")

	newWatermark := icebergfmt.Watermark{
		TableName:             opts.IcebergTable,
		LastSyncTimestamp:     maxW,
		LastIcebergSnapshotID: derefOrZero(newSnapshotID),
		RowCount:              int64(len(delta)),
		CreatedAt:             time.Now(),
	}
	if err := c.wm.Put(newWatermark); err != nil {
		return failure(err, "watermark advance")
	}
	log.Info().Msg("watermark advanced")

	return Result{
		Success:       true,
		Extracted:     int64(len(delta)),
		Appended:      int64(len(delta)),
		Imported:      importResult.Imported,
		Inserted:      importResult.Inserted,
		Updated:       importResult.Updated,
		NewSnapshotID: newSnapshotID,
		NewWatermark:  &newWatermark,
	}
}

func failure(err error, stage string) Result {
	msg := stage + " failed: " + err.Error()
	if icebergerrors.Is(err) {
		msg = stage + " failed: " + icebergerrors.FormatForLog(err)
	}
	return Result{Success: false, ErrorMessage: msg}
}

func derefOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// scanDelta materializes rows against the described columns into Row maps.
func scanDelta(rows *sql.Rows, columns []icebergfmt.SourceColumn) ([]icebergfmt.Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []icebergfmt.Row
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(icebergfmt.Row, len(names))
		for i, name := range names {
			row[name] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// maxWatermarkValue computes max(row[watermarkCol]) over delta, formatted
// the same way regardless of the column's underlying Go type, so it can be
// persisted as the Watermark record's string field and re-used verbatim as
// next cycle's query parameter.
func maxWatermarkValue(delta []icebergfmt.Row, watermarkCol string) string {
	var max any
	for _, row := range delta {
		v := row[watermarkCol]
		if v == nil {
			continue
		}
		if max == nil || compareAny(v, max) > 0 {
			max = v
		}
	}
	return formatWatermark(max)
}

func compareAny(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.After(bv):
				return 1
			case av.Before(bv):
				return -1
			default:
				return 0
			}
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av > bv:
				return 1
			case av < bv:
				return -1
			default:
				return 0
			}
		}
	}
	as, bs := formatWatermark(a), formatWatermark(b)
	switch {
	case as > bs:
		return 1
	case as < bs:
		return -1
	default:
		return 0
	}
}

func formatWatermark(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// inferSchema builds a table's initial Iceberg schema from the source
// columns the first cycle's extraction described, assigning stable field
// ids 1..N in column order. A column whose source type has no Iceberg
// mapping fails the whole cycle rather than being silently dropped from the
// schema: a column excluded here would be excluded from every subsequent
// sync too, with nothing in the table's history recording why.
func inferSchema(columns []icebergfmt.SourceColumn) (*icebergfmt.Schema, error) {
	fields := make([]icebergfmt.Field, 0, len(columns))
	for i, col := range columns {
		f, err := icebergfmt.MapColumn(col, i+1)
		if err != nil {
			return nil, icebergerrors.New(icebergfmt.ErrUnsupportedType, "source column has no iceberg type mapping", err).
				AddContext("column", col.Name)
		}
		fields = append(fields, f)
	}
	return icebergfmt.NewSchema(0, fields...), nil
}
