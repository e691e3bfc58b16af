package window

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/rows"
)

func classifyTestEnv() classifyEnv {
	schema := rows.NewSchema(
		rows.Field{Name: "department", Type: arrow.BinaryTypes.String},
		rows.Field{Name: "salary", Type: arrow.PrimitiveTypes.Int64},
		rows.Field{Name: "bonus", Type: arrow.PrimitiveTypes.Int64},
	)
	return classifyEnv{
		schema:     schema,
		orderNames: []string{"salary"},
		orderKeys:  []orderKey{{index: 1, dt: arrow.PrimitiveTypes.Int64}},
		loc:        time.UTC,
	}
}

func orderedSpec() *expr.WindowSpec {
	return expr.NewWindow().PartitionBy("department").OrderBy("salary", true)
}

func TestClassifySharedFrameGroup(t *testing.T) {
	spec := orderedSpec().Rows(expr.Between(expr.Preceding(1), expr.CurrentRow()))
	exprs := []*expr.WindowExpr{
		expr.Sum(expr.Col("salary")).Over(spec),
		expr.Count(expr.Col("bonus")).Over(spec),
	}

	groups, err := classifyFrames(exprs, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, categoryAggregate, g.key.category)
	assert.Len(t, g.exprs, 2)
	assert.Zero(t, g.ordinal)
}

func TestClassifyOrdinalsAreCumulative(t *testing.T) {
	running := orderedSpec().Rows(expr.Between(expr.UnboundedPreceding(), expr.CurrentRow()))
	sliding := orderedSpec().Rows(expr.Between(expr.Preceding(1), expr.Following(1)))

	exprs := []*expr.WindowExpr{
		expr.Sum(expr.Col("salary")).Over(running),
		expr.Count(expr.Col("salary")).Over(running),
		expr.Max(expr.Col("salary")).Over(sliding),
		expr.Lag(expr.Col("salary"), 1).Over(orderedSpec()),
	}

	groups, err := classifyFrames(exprs, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// groups keep first-seen order; ordinals accumulate group sizes
	assert.Zero(t, groups[0].ordinal)
	assert.Len(t, groups[0].exprs, 2)
	assert.Equal(t, 2, groups[1].ordinal)
	assert.Len(t, groups[1].exprs, 1)
	assert.Equal(t, 3, groups[2].ordinal)
	assert.Equal(t, categoryFramelessOffset, groups[2].key.category)
}

func TestClassifyDefaultFrames(t *testing.T) {
	// with ORDER BY: running RANGE frame
	groups, err := classifyFrames([]*expr.WindowExpr{
		expr.Sum(expr.Col("salary")).Over(orderedSpec()),
	}, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, expr.FrameTypeRange, groups[0].key.frameType)
	assert.Equal(t, "UNBOUNDED PRECEDING", groups[0].key.lower)
	assert.Equal(t, "CURRENT ROW", groups[0].key.upper)

	// without ORDER BY: the whole partition
	env := classifyTestEnv()
	env.orderNames = nil
	env.orderKeys = nil
	groups, err = classifyFrames([]*expr.WindowExpr{
		expr.Sum(expr.Col("salary")).Over(expr.NewWindow().PartitionBy("department")),
	}, env)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "UNBOUNDED PRECEDING", groups[0].key.lower)
	assert.Equal(t, "UNBOUNDED FOLLOWING", groups[0].key.upper)
}

func TestClassifyRankingForcesRowsFrame(t *testing.T) {
	// the declared frame is ignored for ranking functions
	spec := orderedSpec().Range(expr.Between(expr.UnboundedPreceding(), expr.UnboundedFollowing()))
	groups, err := classifyFrames([]*expr.WindowExpr{
		expr.Rank().Over(spec),
		expr.RowNumber().Over(spec),
		expr.DenseRank().Over(spec),
	}, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, categoryAggregate, g.key.category)
	assert.Equal(t, expr.FrameTypeRows, g.key.frameType)
	assert.Equal(t, "UNBOUNDED PRECEDING", g.key.lower)
	assert.Equal(t, "CURRENT ROW", g.key.upper)
	assert.Len(t, g.exprs, 3)
}

func TestClassifyNullSkipDisambiguator(t *testing.T) {
	spec := orderedSpec()

	// respect-nulls offsets on different columns share a frame
	groups, err := classifyFrames([]*expr.WindowExpr{
		expr.Lag(expr.Col("salary"), 1).Over(spec),
		expr.Lag(expr.Col("bonus"), 1).Over(spec),
	}, classifyTestEnv())
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	// null-skipping offsets on different columns must not
	groups, err = classifyFrames([]*expr.WindowExpr{
		expr.Lag(expr.Col("salary"), 1).IgnoreNulls().Over(spec),
		expr.Lag(expr.Col("bonus"), 1).IgnoreNulls().Over(spec),
	}, classifyTestEnv())
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	// same input, same flag: shared again
	groups, err = classifyFrames([]*expr.WindowExpr{
		expr.Lag(expr.Col("salary"), 1).IgnoreNulls().Over(spec).As("a"),
		expr.Lag(expr.Col("salary"), 1).IgnoreNulls().Over(spec).As("b"),
	}, classifyTestEnv())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestClassifyNthValueCategories(t *testing.T) {
	wholeSpec := orderedSpec().Rows(expr.Between(expr.UnboundedPreceding(), expr.UnboundedFollowing()))
	groups, err := classifyFrames([]*expr.WindowExpr{
		expr.NthValue(expr.Col("salary"), 2).Over(wholeSpec),
	}, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, categoryUnboundedOffset, groups[0].key.category)

	// default frame maps to the running variant
	groups, err = classifyFrames([]*expr.WindowExpr{
		expr.FirstValue(expr.Col("salary")).Over(orderedSpec()),
	}, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, categoryUnboundedPrecedingOffset, groups[0].key.category)
}

func TestClassifyRejectsUnsupportedShapes(t *testing.T) {
	// nth_value over a sliding frame has no evaluator
	spec := orderedSpec().Rows(expr.Between(expr.Preceding(2), expr.CurrentRow()))
	_, err := classifyFrames([]*expr.WindowExpr{
		expr.NthValue(expr.Col("salary"), 1).Over(spec),
	}, classifyTestEnv())
	assert.Error(t, err)

	// lag offset must be a literal
	fnExpr := expr.Lag(expr.Col("salary"), 1)
	_, err = classifyFrames([]*expr.WindowExpr{
		fnExpr.Over(orderedSpec()),
	}, classifyTestEnv())
	assert.NoError(t, err)
}

func TestClassifyForeignAggregateSkipsProcessor(t *testing.T) {
	spec := orderedSpec().Rows(expr.Between(expr.UnboundedPreceding(), expr.CurrentRow()))
	groups, err := classifyFrames([]*expr.WindowExpr{
		expr.ForeignAggregation("my_median", expr.Col("salary")).Over(spec),
		expr.Sum(expr.Col("salary")).Over(spec),
	}, classifyTestEnv())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// the shared group drops its native processor entirely
	buf := make(rows.Row, 2)
	frame, err := groups[0].factory(buf)
	require.NoError(t, err)
	require.NoError(t, frame.write(0, rows.Row{"eng", int64(1), int64(2)}))
	assert.Equal(t, rows.Row{nil, nil}, buf)
}

func TestClassifyFrameKeyString(t *testing.T) {
	key := frameKey{
		category:  categoryAggregate,
		frameType: expr.FrameTypeRows,
		lower:     "UNBOUNDED PRECEDING",
		upper:     "CURRENT ROW",
	}
	assert.Equal(t, "AGGREGATE/ROWS[UNBOUNDED PRECEDING, CURRENT ROW]", key.String())
}
