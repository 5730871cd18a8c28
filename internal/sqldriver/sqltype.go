package sqldriver

import (
	"fmt"
	"strings"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
)

// quoteIdent double-quote-quotes a SQL identifier, the one quoting style
// both SQLite and PostgreSQL accept, so staging-table SQL needs no
// per-dialect identifier quoting.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqliteColumnType maps a described source column to a SQLite storage
// class for the staging table. SQLite's type affinity rules make most
// choices advisory, but matching the nearer affinity avoids silent
// coercion surprises.
func sqliteColumnType(col icebergfmt.SourceColumn) string {
	t := strings.ToLower(col.Type)
	switch {
	case strings.Contains(t, "int"):
		return "INTEGER"
	case strings.Contains(t, "real"), strings.Contains(t, "float"), strings.Contains(t, "double"), strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		return "REAL"
	case strings.Contains(t, "blob"), strings.Contains(t, "binary"):
		return "BLOB"
	default:
		return "TEXT"
	}
}

// postgresColumnType maps a described source column to a native Postgres
// type for the staging table.
func postgresColumnType(col icebergfmt.SourceColumn) string {
	t := strings.ToLower(col.Type)
	switch {
	case strings.Contains(t, "bool"):
		return "BOOLEAN"
	case strings.Contains(t, "bigint"), strings.Contains(t, "int8"):
		return "BIGINT"
	case strings.Contains(t, "int"):
		return "INTEGER"
	case strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		if col.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", col.Precision, col.Scale)
		}
		return "NUMERIC"
	case strings.Contains(t, "double"), strings.Contains(t, "float8"):
		return "DOUBLE PRECISION"
	case strings.Contains(t, "float"), strings.Contains(t, "real"):
		return "REAL"
	case strings.Contains(t, "timestamptz"), strings.Contains(t, "timestamp with time zone"):
		return "TIMESTAMPTZ"
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return "TIMESTAMP"
	case strings.Contains(t, "date"):
		return "DATE"
	case strings.Contains(t, "uuid"):
		return "UUID"
	case strings.Contains(t, "bytea"), strings.Contains(t, "binary"), strings.Contains(t, "blob"):
		return "BYTEA"
	default:
		return "TEXT"
	}
}
