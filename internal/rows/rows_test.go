package rows_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtk96/windmill/internal/rows"
)

func testSchema() rows.Schema {
	return rows.NewSchema(
		rows.Field{Name: "department", Type: arrow.BinaryTypes.String},
		rows.Field{Name: "salary", Type: arrow.PrimitiveTypes.Int64},
	)
}

func TestSchemaLookup(t *testing.T) {
	s := testSchema()
	assert.Equal(t, 2, s.NumFields())

	idx, ok := s.FieldIndex("salary")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "salary", s.Field(idx).Name)

	_, ok = s.FieldIndex("missing")
	assert.False(t, ok)
}

func TestSchemaConcat(t *testing.T) {
	s := testSchema().Concat(rows.NewSchema(
		rows.Field{Name: "running_sum", Type: arrow.PrimitiveTypes.Int64},
	))
	assert.Equal(t, 3, s.NumFields())

	idx, ok := s.FieldIndex("running_sum")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestRowCopyAndConcat(t *testing.T) {
	r := rows.Row{"eng", int64(100)}
	cp := r.Copy()
	cp[1] = int64(200)
	assert.Equal(t, int64(100), r[1])

	joined := r.Concat(rows.Row{int64(300), nil})
	assert.Equal(t, rows.Row{"eng", int64(100), int64(300), nil}, joined)
	assert.Len(t, r, 2)
}

func TestRowString(t *testing.T) {
	assert.Equal(t, "[eng, 100, NULL]", rows.Row{"eng", int64(100), nil}.String())
}

func TestColumnProjection(t *testing.T) {
	s := testSchema()
	proj, err := rows.NewColumnProjection(s, "salary")
	require.NoError(t, err)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, proj.DataType())

	v, err := proj.Eval(rows.Row{"eng", int64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = rows.NewColumnProjection(s, "missing")
	assert.Error(t, err)
}

func TestKeyProjection(t *testing.T) {
	s := testSchema()
	proj, err := rows.NewKeyProjection(s, "department")
	require.NoError(t, err)

	k1, err := proj.Project(rows.Row{"eng", int64(1)})
	require.NoError(t, err)
	k2, err := proj.Project(rows.Row{"eng", int64(2)})
	require.NoError(t, err)
	k3, err := proj.Project(rows.Row{"sales", int64(1)})
	require.NoError(t, err)

	eq, err := proj.KeysEqual(k1, k2)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = proj.KeysEqual(k1, k3)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestKeyProjectionNullKeys(t *testing.T) {
	s := testSchema()
	proj, err := rows.NewKeyProjection(s, "department")
	require.NoError(t, err)

	k1, err := proj.Project(rows.Row{nil, int64(1)})
	require.NoError(t, err)
	k2, err := proj.Project(rows.Row{nil, int64(2)})
	require.NoError(t, err)

	// NULL partition keys group together
	eq, err := proj.KeysEqual(k1, k2)
	require.NoError(t, err)
	assert.True(t, eq)
}
