package sqldriver

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

// SQLiteSourceDriver extracts rows from a SQLite database via a plain
// database/sql connection, the same driver registration (mattn/go-sqlite3)
// the teacher uses for its own registry database.
type SQLiteSourceDriver struct {
	db *sql.DB
}

// NewSQLiteSourceDriver opens path (a filesystem path or "file::memory:").
func NewSQLiteSourceDriver(path string) (*SQLiteSourceDriver, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "failed to open sqlite source", err).AddContext("path", path)
	}
	return &SQLiteSourceDriver{db: db}, nil
}

func (d *SQLiteSourceDriver) Execute(ctx context.Context, sqlText string, params []any) (*sql.Rows, error) {
	rows, err := d.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "source query failed", err).AddContext("sql", sqlText)
	}
	return rows, nil
}

func (d *SQLiteSourceDriver) Describe(rows *sql.Rows) ([]icebergfmt.SourceColumn, error) {
	return scanRowsToSourceColumns(rows)
}

func (d *SQLiteSourceDriver) Close() error {
	return d.db.Close()
}

// NewSQLiteTargetDriver opens path as a bun.DB over the SQLite dialect for
// staging + merge.
func NewSQLiteTargetDriver(path string) (TargetDriver, error) {
	sqldb, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, icebergerrors.New(ErrTargetMergeFailed, "failed to open sqlite target", err).AddContext("path", path)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	return &bunTargetDriver{db: db, columnType: sqliteColumnType, tempTableSuffix: ""}, nil
}
