package rows

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/gtk96/windmill/internal/errors"
)

// ValueProjection extracts a single value from a row.
type ValueProjection interface {
	Eval(Row) (any, error)
}

// RowProjection maps a row to another row.
type RowProjection interface {
	Project(Row) (Row, error)
}

// ColumnProjection extracts one named column.
type ColumnProjection struct {
	index int
	typ   arrow.DataType
}

// NewColumnProjection compiles a single-column extraction against the schema.
func NewColumnProjection(schema Schema, name string) (*ColumnProjection, error) {
	idx, ok := schema.FieldIndex(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("Projection", name)
	}
	return &ColumnProjection{index: idx, typ: schema.Field(idx).Type}, nil
}

// Eval implements ValueProjection.
func (p *ColumnProjection) Eval(r Row) (any, error) {
	return r[p.index], nil
}

// DataType returns the Arrow type of the projected column.
func (p *ColumnProjection) DataType() arrow.DataType {
	return p.typ
}

// KeyProjection extracts a key row from a subset of columns. Two projected key
// rows compare equal by value, which is what partition-boundary detection needs.
type KeyProjection struct {
	indices []int
	types   []arrow.DataType
}

// NewKeyProjection compiles a multi-column key extraction against the schema.
func NewKeyProjection(schema Schema, names ...string) (*KeyProjection, error) {
	indices := make([]int, len(names))
	types := make([]arrow.DataType, len(names))
	for i, name := range names {
		idx, ok := schema.FieldIndex(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Projection", name)
		}
		indices[i] = idx
		types[i] = schema.Field(idx).Type
	}
	return &KeyProjection{indices: indices, types: types}, nil
}

// Project implements RowProjection.
func (p *KeyProjection) Project(r Row) (Row, error) {
	key := make(Row, len(p.indices))
	for i, idx := range p.indices {
		key[i] = r[idx]
	}
	return key, nil
}

// KeysEqual reports value equality of two projected key rows.
func (p *KeyProjection) KeysEqual(a, b Row) (bool, error) {
	for i, dt := range p.types {
		eq, err := EqualValues(dt, a[i], b[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

// ConcatProjection is the default result projection: original row columns
// followed by the window output slots, unchanged.
type ConcatProjection struct{}

// Project implements RowProjection.
func (ConcatProjection) Project(r Row) (Row, error) {
	return r, nil
}
