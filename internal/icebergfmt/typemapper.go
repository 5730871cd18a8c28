package icebergfmt

import (
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/iceberg-go"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var (
	// ErrUnsupportedType is returned by MapColumn for any source type not in
	// the required mapping table of §4.1.
	ErrUnsupportedType = icebergerrors.MustNewCode("icebergfmt.unsupported_type")
)

// SourceColumn describes one column as reported by a source driver's
// Describe call: a name, a dialect-neutral canonical type name, nullability,
// and precision/scale for fixed-point types.
type SourceColumn struct {
	Name      string
	Type      string
	Nullable  bool
	Precision int
	Scale     int
}

// booleanSurrogateTypes are source types some dialects use in place of a
// native boolean column: ENUM and CHAR(1) flag columns. Other surrogates
// such as MySQL's TINYINT(1) are not in this set and map as unsupported.
var booleanSurrogateTypes = map[string]bool{
	"enum":    true,
	"char(1)": true,
}

// MapColumn translates one source column descriptor into an Iceberg field
// with the given stable field id. It is pure and side-effect-free: the same
// SourceColumn always maps to the same Field.Type.
func MapColumn(col SourceColumn, fieldID int) (Field, error) {
	t, err := mapType(col.Type, col.Precision, col.Scale)
	if err != nil {
		return Field{}, err
	}
	return Field{ID: fieldID, Name: col.Name, Required: !col.Nullable, Type: t}, nil
}

func mapType(sourceType string, precision, scale int) (iceberg.Type, error) {
	t := strings.ToLower(strings.TrimSpace(sourceType))

	if booleanSurrogateTypes[t] {
		return iceberg.PrimitiveTypes.Bool, nil
	}

	switch t {
	case "bool", "boolean":
		return iceberg.PrimitiveTypes.Bool, nil
	case "int8", "int16", "int32", "tinyint", "smallint", "integer", "int":
		return iceberg.PrimitiveTypes.Int32, nil
	case "int64", "bigint", "long":
		return iceberg.PrimitiveTypes.Int64, nil
	case "float4", "real", "float32", "float":
		return iceberg.PrimitiveTypes.Float32, nil
	case "float8", "double precision", "float64", "double":
		return iceberg.PrimitiveTypes.Float64, nil
	case "decimal", "numeric":
		if precision <= 0 {
			precision, scale = 38, 18
		}
		return iceberg.DecimalTypeOf(precision, scale), nil
	case "date":
		return iceberg.PrimitiveTypes.Date, nil
	case "timestamp", "datetime":
		return iceberg.PrimitiveTypes.Timestamp, nil
	case "timestamptz", "timestamp with time zone":
		return iceberg.PrimitiveTypes.TimestampTz, nil
	case "char", "varchar", "text", "nvarchar", "nchar", "string", "clob":
		return iceberg.PrimitiveTypes.String, nil
	case "binary", "varbinary", "blob", "bytea":
		return iceberg.PrimitiveTypes.Binary, nil
	case "uuid", "guid", "uniqueidentifier":
		return iceberg.PrimitiveTypes.UUID, nil
	default:
		return nil, icebergerrors.New(ErrUnsupportedType, "unsupported source column type", nil).
			AddContext("source_type", sourceType)
	}
}

// PhysicalType reports the Parquet physical type (and, for
// FIXED_LEN_BYTE_ARRAY, its byte length) a given Iceberg primitive type maps
// to. The Parquet writer derives this automatically via Arrow's schema
// converter; this function exists so the mapping in §4.1 is independently
// checkable by tests.
func PhysicalType(t iceberg.Type) (parquet.Type, int, error) {
	switch t {
	case iceberg.PrimitiveTypes.Bool:
		return parquet.Types.Boolean, 0, nil
	case iceberg.PrimitiveTypes.Int32:
		return parquet.Types.Int32, 0, nil
	case iceberg.PrimitiveTypes.Int64:
		return parquet.Types.Int64, 0, nil
	case iceberg.PrimitiveTypes.Float32:
		return parquet.Types.Float, 0, nil
	case iceberg.PrimitiveTypes.Float64:
		return parquet.Types.Double, 0, nil
	case iceberg.PrimitiveTypes.Date:
		return parquet.Types.Int32, 0, nil
	case iceberg.PrimitiveTypes.Timestamp, iceberg.PrimitiveTypes.TimestampTz:
		return parquet.Types.Int64, 0, nil
	case iceberg.PrimitiveTypes.String, iceberg.PrimitiveTypes.Binary:
		return parquet.Types.ByteArray, 0, nil
	case iceberg.PrimitiveTypes.UUID:
		return parquet.Types.FixedLenByteArray, 16, nil
	default:
		if dt, ok := t.(iceberg.DecimalType); ok {
			return parquet.Types.FixedLenByteArray, decimalByteWidth(dt.Precision()), nil
		}
		return 0, 0, icebergerrors.New(ErrUnsupportedType, "no physical type mapping for iceberg type", nil).
			AddContext("iceberg_type", t.String())
	}
}

// log2Of10 is log2(10), used to size the two's-complement representation of
// a decimal value of a given precision.
const log2Of10 = 3.32192809488736

// decimalByteWidth returns the minimum FIXED_LEN_BYTE_ARRAY width that can
// hold a base-10 value of the given precision, per the Parquet decimal spec
// (the same formula the Parquet reference implementations use).
func decimalByteWidth(precision int) int {
	return int(math.Ceil((float64(precision)*log2Of10 + 1) / 8))
}
