package rowstore_test

import (
	"io"
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/rowstore"
)

func bufferSchema() rows.Schema {
	return rows.NewSchema(
		rows.Field{Name: "name", Type: arrow.BinaryTypes.String},
		rows.Field{Name: "v", Type: arrow.PrimitiveTypes.Int64},
	)
}

func fillBuffer(t *testing.T, buf *rowstore.Buffer, n int) []rows.Row {
	t.Helper()
	added := make([]rows.Row, 0, n)
	for i := 0; i < n; i++ {
		var v any = int64(i)
		if i%5 == 4 {
			v = nil
		}
		r := rows.Row{"r", v}
		require.NoError(t, buf.Add(r))
		added = append(added, r)
	}
	return added
}

func drain(t *testing.T, it *rowstore.Iterator) []rows.Row {
	t.Helper()
	var out []rows.Row
	for {
		r, err := it.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, r)
	}
}

func TestBufferInMemory(t *testing.T) {
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{}, nil)
	added := fillBuffer(t, buf, 10)
	assert.Equal(t, 10, buf.Len())

	it, err := buf.NewIterator()
	require.NoError(t, err)
	assert.Equal(t, added, drain(t, it))

	// fully in memory, nothing spilled
	assert.Zero(t, buf.SpillSize())
	require.NoError(t, buf.Clear())
	assert.Zero(t, buf.Len())
}

func TestBufferSpillRoundTrip(t *testing.T) {
	dir := t.TempDir()
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{
		InMemoryRowThreshold: 4,
		SpillBatchRows:       3,
		SpillDir:             dir,
	}, nil)

	added := fillBuffer(t, buf, 20)
	assert.Equal(t, 20, buf.Len())

	it, err := buf.NewIterator()
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 20)
	assert.Equal(t, added, got)

	assert.Positive(t, buf.SpillSize())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, buf.Clear())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spill file removed on Clear")
	assert.Zero(t, buf.SpillSize())
}

func TestBufferConcurrentIterators(t *testing.T) {
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{
		InMemoryRowThreshold: 2,
		SpillBatchRows:       2,
		SpillDir:             t.TempDir(),
	}, nil)
	added := fillBuffer(t, buf, 8)

	it1, err := buf.NewIterator()
	require.NoError(t, err)
	it2, err := buf.NewIterator()
	require.NoError(t, err)

	// interleave the two readers
	r1, err := it1.Next()
	require.NoError(t, err)
	assert.Equal(t, added[0], r1)

	assert.Equal(t, added, drain(t, it2))
	rest := drain(t, it1)
	assert.Equal(t, added[1:], rest)
}

func TestBufferIteratorAt(t *testing.T) {
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{
		InMemoryRowThreshold: 3,
		SpillBatchRows:       2,
		SpillDir:             t.TempDir(),
	}, nil)
	added := fillBuffer(t, buf, 9)

	it, err := buf.NewIteratorAt(5)
	require.NoError(t, err)
	assert.Equal(t, added[5:], drain(t, it))

	// starting at the end yields an immediately exhausted iterator
	it, err = buf.NewIteratorAt(9)
	require.NoError(t, err)
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestBufferAddAfterSealFails(t *testing.T) {
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{}, nil)
	fillBuffer(t, buf, 3)

	_, err := buf.NewIterator()
	require.NoError(t, err)

	err = buf.Add(rows.Row{"late", int64(99)})
	assert.Error(t, err)
}

func TestBufferReuseAfterClear(t *testing.T) {
	dir := t.TempDir()
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{
		InMemoryRowThreshold: 2,
		SpillBatchRows:       2,
		SpillDir:             dir,
	}, nil)

	fillBuffer(t, buf, 6)
	it, err := buf.NewIterator()
	require.NoError(t, err)
	drain(t, it)
	require.NoError(t, buf.Clear())

	// second fill cycle over the same buffer
	added := fillBuffer(t, buf, 5)
	it, err = buf.NewIterator()
	require.NoError(t, err)
	assert.Equal(t, added, drain(t, it))
	require.NoError(t, buf.Clear())
}

func TestBufferNullRoundTrip(t *testing.T) {
	buf := rowstore.NewBuffer(bufferSchema(), rowstore.Options{
		InMemoryRowThreshold: 1,
		SpillBatchRows:       1,
		SpillDir:             t.TempDir(),
	}, nil)
	require.NoError(t, buf.Add(rows.Row{"a", int64(1)}))
	require.NoError(t, buf.Add(rows.Row{nil, nil}))
	require.NoError(t, buf.Add(rows.Row{"c", int64(3)}))

	it, err := buf.NewIterator()
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 3)
	assert.Equal(t, rows.Row{nil, nil}, got[1])
}
