// Package sqldriver is the small, replaceable database driver surface the
// sync core calls against: a source side for extraction and schema
// description, a target side for bulk-load and transactional DDL/DML.
// Concrete dialects are added behind these two interfaces, never by
// branching on dialect inside the core.
package sqldriver

import (
	"context"
	"database/sql"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var (
	// ErrSourceQueryFailed is retryable: it fires on a dropped connection or
	// a busy source as readily as on a broken query, and RetryWithBackoff
	// is what the coordinator wraps extraction in to ride out the former.
	ErrSourceQueryFailed    = icebergerrors.MustNewRetryableCode("syncengine.source_query_failed")
	ErrTargetBulkLoadFailed = icebergerrors.MustNewRetryableCode("syncengine.target_bulk_load_failed")
	ErrTargetMergeFailed    = icebergerrors.MustNewCode("syncengine.target_merge_failed")
)

// SourceDriver is what the coordinator calls to extract a delta and
// describe the shape of the rows it got back, so MapColumn (§4.1) can build
// an Iceberg schema on a table's first cycle.
type SourceDriver interface {
	// Execute runs a parameterized query and streams rows forward-only.
	Execute(ctx context.Context, sqlText string, params []any) (*sql.Rows, error)
	// Describe reports name/type/nullable for rows' columns.
	Describe(rows *sql.Rows) ([]icebergfmt.SourceColumn, error)
	Close() error
}

// TargetDriver is what the coordinator calls to land a delta: bulk-load it
// into a staging table and run a set-based MERGE from staging into the
// real target table, all inside one transaction.
type TargetDriver interface {
	// Import bulk-loads rows into a fresh staging table and merges them
	// into table by primaryKey, returning counts. A zero-row batch is a
	// no-op success.
	Import(ctx context.Context, table string, primaryKey []string, columns []icebergfmt.SourceColumn, rows []icebergfmt.Row) (ImportResult, error)
	Close() error
}

// ImportResult is the {rows-imported, rows-inserted, rows-updated} triple
// §4.9 requires the importer to return.
type ImportResult struct {
	Imported int64
	Inserted int64
	Updated  int64
}

// scanRowsToSourceColumns is shared by both dialect's Describe: database/sql
// already exposes exactly the (name, type, nullable) triple §6.2 asks for
// via *sql.ColumnType, so there's no dialect-specific work here.
func scanRowsToSourceColumns(rows *sql.Rows) ([]icebergfmt.SourceColumn, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "failed to read column types", err)
	}
	cols := make([]icebergfmt.SourceColumn, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		precision, scale, _ := ct.DecimalSize()
		cols[i] = icebergfmt.SourceColumn{
			Name:      ct.Name(),
			Type:      ct.DatabaseTypeName(),
			Nullable:  nullable,
			Precision: int(precision),
			Scale:     int(scale),
		}
	}
	return cols, nil
}

// rowsToMaps drains rows into Row maps using the driver's reported column
// names, converting database/sql's *[]any scan targets to icebergfmt.Row.
func rowsToMaps(rows *sql.Rows) ([]icebergfmt.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "failed to read column names", err)
	}

	var out []icebergfmt.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, icebergerrors.New(ErrSourceQueryFailed, "failed to scan row", err)
		}
		row := make(icebergfmt.Row, len(cols))
		for i, name := range cols {
			row[name] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "row iteration failed", err)
	}
	return out, nil
}
