package icebergfmt

import (
	"testing"

	"github.com/apache/iceberg-go"
)

func TestMapColumnPrimitives(t *testing.T) {
	cases := []struct {
		sourceType string
		nullable   bool
		want       iceberg.Type
	}{
		{"bigint", false, iceberg.PrimitiveTypes.Int64},
		{"INTEGER", true, iceberg.PrimitiveTypes.Int32},
		{"double precision", false, iceberg.PrimitiveTypes.Float64},
		{"varchar", true, iceberg.PrimitiveTypes.String},
		{"timestamp", false, iceberg.PrimitiveTypes.Timestamp},
		{"char(1)", true, iceberg.PrimitiveTypes.Bool},
	}

	for _, c := range cases {
		field, err := MapColumn(SourceColumn{Name: "col", Type: c.sourceType, Nullable: c.nullable}, 1)
		if err != nil {
			t.Fatalf("MapColumn(%q) returned error: %v", c.sourceType, err)
		}
		if field.Type != c.want {
			t.Errorf("MapColumn(%q) = %v, want %v", c.sourceType, field.Type, c.want)
		}
		if field.Required != !c.nullable {
			t.Errorf("MapColumn(%q).Required = %v, want %v", c.sourceType, field.Required, !c.nullable)
		}
	}
}

func TestMapColumnDecimal(t *testing.T) {
	field, err := MapColumn(SourceColumn{Name: "price", Type: "decimal", Precision: 9, Scale: 2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dt, ok := field.Type.(iceberg.DecimalType)
	if !ok {
		t.Fatalf("expected a DecimalType, got %T", field.Type)
	}
	if dt.Precision() != 9 || dt.Scale() != 2 {
		t.Errorf("expected decimal(9,2), got decimal(%d,%d)", dt.Precision(), dt.Scale())
	}
}

func TestMapColumnDecimalDefaultsWhenPrecisionMissing(t *testing.T) {
	field, err := MapColumn(SourceColumn{Name: "amount", Type: "numeric"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dt := field.Type.(iceberg.DecimalType)
	if dt.Precision() != 38 || dt.Scale() != 18 {
		t.Errorf("expected default decimal(38,18), got decimal(%d,%d)", dt.Precision(), dt.Scale())
	}
}

func TestMapColumnUnsupportedType(t *testing.T) {
	_, err := MapColumn(SourceColumn{Name: "col", Type: "geometry"}, 1)
	if err == nil {
		t.Fatal("expected an error for an unsupported source type")
	}
}

func TestDecimalByteWidth(t *testing.T) {
	// Parquet's reference widths for common precisions.
	cases := map[int]int{9: 4, 18: 8, 38: 16}
	for precision, want := range cases {
		if got := decimalByteWidth(precision); got != want {
			t.Errorf("decimalByteWidth(%d) = %d, want %d", precision, got, want)
		}
	}
}

func TestPhysicalTypeDecimal(t *testing.T) {
	pt, width, err := PhysicalType(iceberg.DecimalTypeOf(9, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if width != 4 {
		t.Errorf("expected width 4 for decimal(9,2), got %d", width)
	}
	_ = pt
}
