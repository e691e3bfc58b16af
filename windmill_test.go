package windmill_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	windmill "github.com/gtk96/windmill"
	"github.com/gtk96/windmill/internal/testutil"
)

func employeeOperator(t *testing.T, opts ...windmill.Option) *windmill.Operator {
	t.Helper()
	spec := windmill.Window().PartitionBy("department").OrderBy("salary", true)
	op, err := windmill.NewOperator([]*windmill.WindowExpr{
		windmill.Sum(windmill.Col("salary")).
			Over(spec.Rows(windmill.Between(windmill.UnboundedPreceding(), windmill.CurrentRow()))).
			As("running_total"),
		windmill.Rank().Over(spec).As("salary_rank"),
		windmill.Lag(windmill.Col("salary"), 1).Over(spec).As("prev_salary"),
	}, testutil.EmployeeSchema(), opts...)
	require.NoError(t, err)
	return op
}

func TestOperatorEndToEnd(t *testing.T) {
	op := employeeOperator(t)

	schema := op.Schema()
	require.Equal(t, 6, schema.NumFields())
	assert.Equal(t, "running_total", schema.Field(3).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(3).Type)
	assert.Equal(t, "salary_rank", schema.Field(4).Name)
	assert.Equal(t, "prev_salary", schema.Field(5).Name)

	input := testutil.EmployeeRows()
	it, err := op.Evaluate(context.Background(), testutil.NewSliceSource(input...))
	require.NoError(t, err)

	var out []windmill.Row
	for it.HasNext() {
		r, err := it.Next()
		require.NoError(t, err)
		out = append(out, r)
	}
	require.NoError(t, it.Err())
	require.Len(t, out, len(input))

	// running totals reset at each department boundary
	var running int64
	var dept any
	for i, r := range out {
		if r[0] != dept {
			dept = r[0]
			running = 0
			assert.Nil(t, r[5], "row %d starts a partition", i)
			assert.Equal(t, int64(1), r[4], "row %d starts a partition", i)
		}
		running += r[2].(int64)
		assert.Equal(t, running, r[3], "row %d", i)
	}
}

func TestOperatorOptions(t *testing.T) {
	cfg := windmill.DefaultConfig()
	cfg.InMemoryRowThreshold = 2
	cfg.SpillBatchRows = 2
	cfg.SpillDir = t.TempDir()
	scope := tally.NewTestScope("", nil)

	op := employeeOperator(t,
		windmill.WithConfig(cfg),
		windmill.WithMetricsScope(scope),
		windmill.WithLogger(zap.NewNop()),
	)

	input := testutil.EmployeeRows(testutil.WithRowCount(12))
	it, err := op.Evaluate(context.Background(), testutil.NewSliceSource(input...))
	require.NoError(t, err)
	n := 0
	for it.HasNext() {
		_, err := it.Next()
		require.NoError(t, err)
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, len(input), n)

	counters := scope.Snapshot().Counters()
	assert.Equal(t, int64(len(input)), counters["window_rows_out+"].Value())
	assert.Positive(t, counters["window_spill_bytes+"].Value())
}

func TestOperatorEvaluateStreams(t *testing.T) {
	op := employeeOperator(t)

	input := testutil.EmployeeRows()
	// split the sorted input at a department boundary
	split := 0
	for i := 1; i < len(input); i++ {
		if input[i][0] != input[0][0] {
			split = i
			break
		}
	}
	require.Positive(t, split)

	out, err := op.EvaluateStreams(context.Background(), []windmill.RowSource{
		testutil.NewSliceSource(input[:split]...),
		testutil.NewSliceSource(input[split:]...),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], split)
	assert.Len(t, out[1], len(input)-split)
}
