package arrowtable

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/meta"
)

const dateLayout = "2006-01-02"

// typeOf maps an Arrow type onto a column type tag.
func typeOf(dt arrow.DataType) meta.DataType {
	switch dt.ID() {
	case arrow.BOOL:
		return meta.TypeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return meta.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return meta.TypeFloat
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return meta.TypeDecimal
	case arrow.STRING, arrow.LARGE_STRING:
		return meta.TypeString
	case arrow.DATE32, arrow.DATE64:
		return meta.TypeDate
	case arrow.TIMESTAMP:
		return meta.TypeTimestamp
	case arrow.BINARY, arrow.LARGE_BINARY:
		return meta.TypeBinary
	default:
		return meta.TypeUnknown
	}
}

// valueAt converts one non-null cell. NaN floats come back as ir.Null.
// Dates render as YYYY-MM-DD and timestamps as RFC 3339 UTC text.
func valueAt(arr arrow.Array, i int) (ir.Value, error) {
	switch a := arr.(type) {
	case *array.Boolean:
		return ir.Bool(a.Value(i)), nil
	case *array.Int8:
		return ir.Int(a.Value(i)), nil
	case *array.Int16:
		return ir.Int(a.Value(i)), nil
	case *array.Int32:
		return ir.Int(a.Value(i)), nil
	case *array.Int64:
		return ir.Int(a.Value(i)), nil
	case *array.Uint8:
		return ir.Int(a.Value(i)), nil
	case *array.Uint16:
		return ir.Int(a.Value(i)), nil
	case *array.Uint32:
		return ir.Int(a.Value(i)), nil
	case *array.Uint64:
		return ir.FromGo(a.Value(i))
	case *array.Float16:
		return floatValue(float64(a.Value(i).Float32()))
	case *array.Float32:
		return floatValue(float64(a.Value(i)))
	case *array.Float64:
		return floatValue(a.Value(i))
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return floatValue(a.Value(i).ToFloat64(scale))
	case *array.Decimal256:
		scale := a.DataType().(*arrow.Decimal256Type).Scale
		return floatValue(a.Value(i).ToFloat64(scale))
	case *array.String:
		return ir.String(a.Value(i)), nil
	case *array.LargeString:
		return ir.String(a.Value(i)), nil
	case *array.Binary:
		return ir.String(string(a.Value(i))), nil
	case *array.LargeBinary:
		return ir.String(string(a.Value(i))), nil
	case *array.Date32:
		return ir.String(a.Value(i).ToTime().Format(dateLayout)), nil
	case *array.Date64:
		return ir.String(a.Value(i).ToTime().Format(dateLayout)), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return ir.String(a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
}

func floatValue(f float64) (ir.Value, error) {
	if math.IsNaN(f) {
		return ir.Null{}, nil
	}
	return ir.FromGo(f)
}
