package syncengine

import (
	"context"
	"fmt"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	"github.com/gear6io/syncbridge/internal/sqldriver"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var ErrMergeCardinality = icebergerrors.MustNewCode("syncengine.merge_cardinality")

// Importer enforces §4.9's cardinality rule in front of a sqldriver.TargetDriver:
// the batch handed to the merge must not contain two rows with the same
// primary key. The driver itself trusts its input; this is the guard that
// keeps the coordinator from ever feeding it a re-read of the whole table
// (which would violate that rule) instead of the extracted delta.
type Importer struct {
	driver sqldriver.TargetDriver
}

// NewImporter wraps driver with the cardinality guard.
func NewImporter(driver sqldriver.TargetDriver) *Importer {
	return &Importer{driver: driver}
}

// Import validates rows against primaryKey uniqueness, then merges them into
// table via the wrapped driver. A zero-row batch is a no-op success.
func (im *Importer) Import(ctx context.Context, table string, primaryKey []string, columns []icebergfmt.SourceColumn, rows []icebergfmt.Row) (sqldriver.ImportResult, error) {
	if len(rows) == 0 {
		return sqldriver.ImportResult{}, nil
	}
	if err := checkPrimaryKeyCardinality(rows, primaryKey); err != nil {
		return sqldriver.ImportResult{}, err
	}
	return im.driver.Import(ctx, table, primaryKey, columns, rows)
}

func checkPrimaryKeyCardinality(rows []icebergfmt.Row, primaryKey []string) error {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		key := pkString(row, primaryKey)
		if seen[key] {
			return icebergerrors.New(ErrMergeCardinality, "delta batch contains duplicate primary key", nil).
				AddContext("primary_key_value", key)
		}
		seen[key] = true
	}
	return nil
}

func pkString(row icebergfmt.Row, primaryKey []string) string {
	key := ""
	for i, col := range primaryKey {
		if i > 0 {
			key += "\x00"
		}
		key += fmt.Sprintf("%v", row[col])
	}
	return key
}
