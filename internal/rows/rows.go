// Package rows provides the row and schema model for window evaluation.
//
// A Row is an untyped value slice; its column types live in a Schema whose
// fields are typed with Apache Arrow data types. NULL is represented by a
// nil element.
package rows

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Row represents one record as a value slice aligned with a Schema.
type Row []any

// Copy returns an independent copy of the row.
func (r Row) Copy() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Concat returns a new row holding r's values followed by other's values.
func (r Row) Concat(other Row) Row {
	out := make(Row, 0, len(r)+len(other))
	out = append(out, r...)
	out = append(out, other...)
	return out
}

// String renders the row for debugging output.
func (r Row) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		if v == nil {
			parts[i] = "NULL"
		} else {
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Field describes one column: a name and an Arrow data type.
type Field struct {
	Name string
	Type arrow.DataType
}

// Schema describes the column layout of rows flowing through the operator.
type Schema struct {
	fields []Field
	byName map[string]int
}

// NewSchema creates a schema from the given fields.
func NewSchema(fields ...Field) Schema {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[f.Name] = i
	}
	return Schema{fields: fields, byName: byName}
}

// NumFields returns the number of columns.
func (s Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the i-th column descriptor.
func (s Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns the column descriptors in order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldIndex returns the position of the named column.
func (s Schema) FieldIndex(name string) (int, bool) {
	idx, ok := s.byName[name]
	return idx, ok
}

// Concat returns the schema of rows formed by appending other's columns to s's.
func (s Schema) Concat(other Schema) Schema {
	fields := make([]Field, 0, len(s.fields)+len(other.fields))
	fields = append(fields, s.fields...)
	fields = append(fields, other.fields...)
	return NewSchema(fields...)
}

// String renders the schema for debugging output.
func (s Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return "schema(" + strings.Join(parts, ", ") + ")"
}
