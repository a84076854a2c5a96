package arrowtable

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/roach88/imputer/internal/meta"
)

// Decimal columns built from Go rows use this precision and scale.
const (
	decimalPrecision = 38
	decimalScale     = 9
)

// arrowType is the Arrow type FromRows builds for a column type.
func arrowType(dt meta.DataType) (arrow.DataType, error) {
	switch dt {
	case meta.TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case meta.TypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case meta.TypeFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case meta.TypeDecimal:
		return &arrow.Decimal128Type{Precision: decimalPrecision, Scale: decimalScale}, nil
	case meta.TypeString:
		return arrow.BinaryTypes.String, nil
	case meta.TypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case meta.TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	case meta.TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, fmt.Errorf("no arrow type for %s", dt)
	}
}

// FromRows builds a table from Go rows, one value per schema column and nil
// for missing values. Dates and timestamps accept time.Time or text
// (YYYY-MM-DD, RFC 3339).
func FromRows(name string, schema meta.Schema, rows [][]any) (*Table, error) {
	mem := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(schema))
	builders := make([]array.Builder, len(schema))
	defer func() {
		for _, b := range builders {
			if b != nil {
				b.Release()
			}
		}
	}()

	for i, c := range schema {
		dt, err := arrowType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
		builders[i] = array.NewBuilder(mem, dt)
	}

	for r, row := range rows {
		if len(row) != len(schema) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(schema))
		}
		for i, v := range row {
			if err := appendValue(builders[i], v); err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", r, schema[i].Name, err)
			}
		}
	}

	columns := make([]arrow.Column, len(schema))
	for i, b := range builders {
		arr := b.NewArray()
		chunked := arrow.NewChunked(fields[i].Type, []arrow.Array{arr})
		columns[i] = *arrow.NewColumn(fields[i], chunked)
		arr.Release()
		chunked.Release()
	}

	data := array.NewTable(arrow.NewSchema(fields, nil), columns, int64(len(rows)))
	defer data.Release()
	for i := range columns {
		columns[i].Release()
	}
	return New(name, data), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch bb := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		bb.Append(x)
	case *array.Int64Builder:
		x, err := toInt64(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Float64Builder:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Decimal128Builder:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		num, err := decimal128.FromFloat64(x, decimalPrecision, decimalScale)
		if err != nil {
			return err
		}
		bb.Append(num)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		bb.Append(x)
	case *array.BinaryBuilder:
		switch x := v.(type) {
		case []byte:
			bb.Append(x)
		case string:
			bb.AppendString(x)
		default:
			return fmt.Errorf("want []byte, got %T", v)
		}
	case *array.Date32Builder:
		t, err := toTime(v, dateLayout)
		if err != nil {
			return err
		}
		bb.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, err := toTime(v, time.RFC3339Nano)
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, arrow.Microsecond)
		if err != nil {
			return err
		}
		bb.Append(ts)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int, int32, int64:
		n, err := toInt64(x)
		return float64(n), err
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}

func toTime(v any, layout string) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return time.Parse(layout, x)
	default:
		return time.Time{}, fmt.Errorf("want time or text, got %T", v)
	}
}
