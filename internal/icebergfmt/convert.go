package icebergfmt

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// toDate32 converts a time.Time or int32-like value to Arrow Date32 (days
// since the Unix epoch).
func toDate32(v any) (arrow.Date32, bool) {
	switch t := v.(type) {
	case time.Time:
		return arrow.Date32FromTime(t), true
	case int32:
		return arrow.Date32(t), true
	default:
		if i, ok := toInt64(v); ok {
			return arrow.Date32(i), true
		}
		return 0, false
	}
}

// toTimestamp converts a time.Time or raw int64-like value to Arrow
// Timestamp, honoring the field's configured unit (always microseconds for
// this writer, see toArrowType).
func toTimestamp(v any, dt arrow.DataType) (arrow.Timestamp, bool) {
	tsType, ok := dt.(*arrow.TimestampType)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case time.Time:
		ts, err := arrow.TimestampFromTime(t, tsType.Unit)
		if err != nil {
			return 0, false
		}
		return ts, true
	default:
		if i, ok := toInt64(v); ok {
			return arrow.Timestamp(i), true
		}
		return 0, false
	}
}

// toDecimal128 converts a string, float64, or decimal128.Num value to the
// field's Decimal128 representation, scaling by the field's declared scale
// when given an unscaled float.
func toDecimal128(v any, dt arrow.DataType) (decimal128.Num, bool) {
	decType, ok := dt.(*arrow.Decimal128Type)
	if !ok {
		return decimal128.Num{}, false
	}
	switch val := v.(type) {
	case decimal128.Num:
		return val, true
	case string:
		n, err := decimal128.FromString(val, decType.Precision, decType.Scale)
		if err != nil {
			return decimal128.Num{}, false
		}
		return n, true
	case float64:
		n := decimal128.FromFloat64(val, decType.Precision, decType.Scale)
		return n, true
	default:
		return decimal128.Num{}, false
	}
}
