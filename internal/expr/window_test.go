package expr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gtk96/windmill/internal/expr"
)

func TestWindowSpecString(t *testing.T) {
	tests := []struct {
		name     string
		spec     *expr.WindowSpec
		expected string
	}{
		{
			name:     "partition only",
			spec:     expr.NewWindow().PartitionBy("department"),
			expected: "OVER (PARTITION BY department)",
		},
		{
			name:     "partition and order",
			spec:     expr.NewWindow().PartitionBy("department").OrderBy("salary", true),
			expected: "OVER (PARTITION BY department ORDER BY salary ASC)",
		},
		{
			name:     "descending order",
			spec:     expr.NewWindow().OrderBy("salary", false),
			expected: "OVER (ORDER BY salary DESC)",
		},
		{
			name: "rows frame",
			spec: expr.NewWindow().OrderBy("ts", true).
				Rows(expr.Between(expr.Preceding(1), expr.CurrentRow())),
			expected: "OVER (ORDER BY ts ASC ROWS BETWEEN lit(1) PRECEDING AND CURRENT ROW)",
		},
		{
			name: "range frame unbounded",
			spec: expr.NewWindow().OrderBy("ts", true).
				Range(expr.Between(expr.UnboundedPreceding(), expr.UnboundedFollowing())),
			expected: "OVER (ORDER BY ts ASC RANGE BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.spec.String())
		})
	}
}

func TestFrameBoundaryAccessors(t *testing.T) {
	b := expr.Preceding(3)
	assert.Equal(t, expr.BoundaryPreceding, b.Kind())
	assert.False(t, b.Unbounded())

	lit, ok := b.Offset().(*expr.LiteralExpr)
	assert.True(t, ok)
	n, ok := lit.IntValue()
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	assert.True(t, expr.UnboundedPreceding().Unbounded())
	assert.True(t, expr.UnboundedFollowing().Unbounded())
	assert.False(t, expr.CurrentRow().Unbounded())
	assert.Nil(t, expr.CurrentRow().Offset())
}

func TestWindowFunctionString(t *testing.T) {
	assert.Equal(t, "row_number()", expr.RowNumber().String())
	assert.Equal(t, "lag(col(x), lit(2))", expr.Lag(expr.Col("x"), 2).String())
	assert.Equal(t, "lead(col(x), lit(1)) ignore nulls",
		expr.Lead(expr.Col("x"), 1).IgnoreNulls().String())
	assert.Equal(t, "nth_value(col(x), lit(1))", expr.FirstValue(expr.Col("x")).String())
}

func TestWindowExprAlias(t *testing.T) {
	we := expr.Rank().Over(expr.NewWindow().OrderBy("salary", true))
	assert.Equal(t, "rank() OVER (ORDER BY salary ASC)", we.Alias())

	we = we.As("salary_rank")
	assert.Equal(t, "salary_rank", we.Alias())
	assert.Equal(t, "rank() OVER (ORDER BY salary ASC)", we.String())
}

func TestAggregationExpr(t *testing.T) {
	sum := expr.Sum(expr.Col("salary"))
	assert.Equal(t, "sum(col(salary))", sum.String())
	assert.Equal(t, expr.AggSum, sum.AggType())
	assert.False(t, sum.Foreign())

	udaf := expr.ForeignAggregation("my_median", expr.Col("salary"))
	assert.Equal(t, "my_median(col(salary))", udaf.String())
	assert.True(t, udaf.Foreign())
}

func TestIntervalComponents(t *testing.T) {
	assert.Equal(t, int64(24), expr.Years(2).MonthCount())
	assert.Equal(t, int64(5), expr.Months(5).MonthCount())
	assert.Equal(t, time.Duration(0), expr.Months(5).Duration())
	assert.Equal(t, 72*time.Hour, expr.Days(3).Duration())
	assert.Equal(t, 90*time.Minute, expr.Minutes(90).Duration())
	assert.True(t, expr.Years(1).YearMonth())
	assert.False(t, expr.Hours(1).YearMonth())

	ci := expr.CalendarInterval(1, 2, 3*time.Hour)
	assert.Equal(t, int64(1), ci.MonthCount())
	assert.Equal(t, int64(2), ci.DayCount())
	assert.Equal(t, 3*time.Hour, ci.Duration())
}

func TestLiteralIntValue(t *testing.T) {
	_, ok := expr.Lit("five").IntValue()
	assert.False(t, ok)

	n, ok := expr.Lit(int32(7)).IntValue()
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}
