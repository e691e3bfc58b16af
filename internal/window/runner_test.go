package window_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtk96/windmill/internal/config"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/testutil"
	"github.com/gtk96/windmill/internal/window"
)

func TestEvaluateStreamsPropagatesError(t *testing.T) {
	op, err := window.NewOperator([]*expr.WindowExpr{
		expr.RowNumber().Over(pvSpec()).As("rn"),
	}, pvSchema(), nil, nil, nil)
	require.NoError(t, err)

	srcs := []window.RowSource{
		testutil.NewSliceSource(rows.Row{"a", int64(1)}),
		&testutil.ErrSource{Rows: []rows.Row{{"b", int64(1)}}, Err: assert.AnError},
	}
	_, err = op.EvaluateStreams(context.Background(), srcs)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEvaluateStreamsBoundedParallelism(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MaxPartitionParallelism = 1

	op, err := window.NewOperator([]*expr.WindowExpr{
		expr.RowNumber().Over(pvSpec()).As("rn"),
	}, pvSchema(), &cfg, nil, nil)
	require.NoError(t, err)

	srcs := make([]window.RowSource, 8)
	for i := range srcs {
		srcs[i] = testutil.NewSliceSource(rows.Row{"a", int64(i)})
	}
	out, err := op.EvaluateStreams(context.Background(), srcs)
	require.NoError(t, err)
	require.Len(t, out, 8)
	for i, rs := range out {
		require.Len(t, rs, 1, "stream %d", i)
		assert.Equal(t, int64(i), rs[0][1])
	}
}
