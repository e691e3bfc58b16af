package rowstore

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/rows"
)

// arrowSchema converts a row schema into the Arrow schema used for spill
// record batches.
func arrowSchema(schema rows.Schema) *arrow.Schema {
	fields := make([]arrow.Field, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		f := schema.Field(i)
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// encodeBatch builds one Arrow record batch from a run of rows.
func encodeBatch(mem memory.Allocator, schema *arrow.Schema, batch []rows.Row) (arrow.Record, error) {
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for col, field := range schema.Fields() {
		fb := builder.Field(col)
		for _, r := range batch {
			if r[col] == nil {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, field.Type, r[col]); err != nil {
				return nil, err
			}
		}
	}
	return builder.NewRecord(), nil
}

func appendValue(fb array.Builder, dt arrow.DataType, v any) error {
	switch b := fb.(type) {
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.StringBuilder:
		b.Append(v.(string))
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.Date32Builder:
		b.Append(v.(arrow.Date32))
	case *array.TimestampBuilder:
		b.Append(v.(arrow.Timestamp))
	case *array.Decimal128Builder:
		b.Append(v.(decimal128.Num))
	default:
		return errors.NewUnsupportedTypeError("Spill", dt.String())
	}
	return nil
}

// decodeBatch converts one Arrow record batch back into rows. The record's
// memory is only borrowed; the returned rows are independent.
func decodeBatch(rec arrow.Record) ([]rows.Row, error) {
	n := int(rec.NumRows())
	out := make([]rows.Row, n)
	for i := range out {
		out[i] = make(rows.Row, rec.NumCols())
	}

	for col := 0; col < int(rec.NumCols()); col++ {
		arr := rec.Column(col)
		for i := 0; i < n; i++ {
			if arr.IsNull(i) {
				continue
			}
			v, err := arrayValue(arr, i)
			if err != nil {
				return nil, err
			}
			out[i][col] = v
		}
	}
	return out, nil
}

func arrayValue(arr arrow.Array, i int) (any, error) {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i), nil
	case *array.Timestamp:
		return a.Value(i), nil
	case *array.Decimal128:
		return a.Value(i), nil
	default:
		return nil, errors.NewUnsupportedTypeError("Spill", arr.DataType().String())
	}
}
