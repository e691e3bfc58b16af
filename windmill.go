// Package windmill provides streaming evaluation of SQL window functions
// over sorted row streams. This package is the sole public API for the
// library.
//
// The entry point is NewOperator: it compiles a set of window expressions
// sharing one PARTITION BY and ORDER BY against an input schema, and
// Evaluate then streams output rows partition by partition. Partitions that
// exceed the in-memory threshold spill to disk as Arrow IPC record batches.
//
//	op, err := windmill.NewOperator(
//		[]*windmill.WindowExpr{
//			windmill.Sum(windmill.Col("salary")).
//				Over(windmill.Window().
//					PartitionBy("department").
//					OrderBy("salary", true).
//					Rows(windmill.Between(windmill.Preceding(1), windmill.CurrentRow()))).
//				As("running_sum"),
//		},
//		schema,
//	)
package windmill

import (
	"context"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/gtk96/windmill/internal/config"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/metrics"
	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/window"
)

// Row is a single record, one value per schema field; nil marks SQL NULL.
type Row = rows.Row

// Field describes one named, Arrow-typed column.
type Field = rows.Field

// Schema describes the fields of a row stream.
type Schema = rows.Schema

// NewSchema builds a schema from the given fields.
func NewSchema(fields ...Field) Schema {
	return rows.NewSchema(fields...)
}

// Expr is a window input expression.
type Expr = expr.Expr

// WindowExpr is a window function bound to a window specification.
type WindowExpr = expr.WindowExpr

// WindowSpec describes PARTITION BY, ORDER BY and the frame.
type WindowSpec = expr.WindowSpec

// WindowFrame is a ROWS or RANGE frame between two boundaries.
type WindowFrame = expr.WindowFrame

// FrameBoundary is one edge of a window frame.
type FrameBoundary = expr.FrameBoundary

// RowSource supplies sorted input rows; Next returns io.EOF at the end.
type RowSource = window.RowSource

// ResultIterator streams the operator's output rows.
type ResultIterator = window.ResultIterator

// Expression constructors

// Col references a named input column.
func Col(name string) Expr { return expr.Col(name) }

// Lit wraps a literal value.
func Lit(value any) Expr { return expr.Lit(value) }

// Sum creates a SUM aggregation.
func Sum(column Expr) *expr.AggregationExpr { return expr.Sum(column) }

// Count creates a COUNT aggregation.
func Count(column Expr) *expr.AggregationExpr { return expr.Count(column) }

// Mean creates an AVG aggregation.
func Mean(column Expr) *expr.AggregationExpr { return expr.Mean(column) }

// Min creates a MIN aggregation.
func Min(column Expr) *expr.AggregationExpr { return expr.Min(column) }

// Max creates a MAX aggregation.
func Max(column Expr) *expr.AggregationExpr { return expr.Max(column) }

// RowNumber creates a ROW_NUMBER() window function.
func RowNumber() *expr.WindowFunctionExpr { return expr.RowNumber() }

// Rank creates a RANK() window function.
func Rank() *expr.WindowFunctionExpr { return expr.Rank() }

// DenseRank creates a DENSE_RANK() window function.
func DenseRank() *expr.WindowFunctionExpr { return expr.DenseRank() }

// Lag creates a LAG() window function.
func Lag(column Expr, offset int) *expr.WindowFunctionExpr { return expr.Lag(column, offset) }

// Lead creates a LEAD() window function.
func Lead(column Expr, offset int) *expr.WindowFunctionExpr { return expr.Lead(column, offset) }

// NthValue creates an NTH_VALUE() window function; n is 1-based.
func NthValue(column Expr, n int) *expr.WindowFunctionExpr { return expr.NthValue(column, n) }

// FirstValue creates a FIRST_VALUE() window function.
func FirstValue(column Expr) *expr.WindowFunctionExpr { return expr.FirstValue(column) }

// Window creates an empty window specification.
func Window() *WindowSpec { return expr.NewWindow() }

// Between creates a frame between two boundaries.
func Between(start, end *FrameBoundary) *WindowFrame { return expr.Between(start, end) }

// UnboundedPreceding creates an unbounded preceding boundary.
func UnboundedPreceding() *FrameBoundary { return expr.UnboundedPreceding() }

// Preceding creates a preceding boundary offset by a row count.
func Preceding(offset int) *FrameBoundary { return expr.Preceding(offset) }

// PrecedingBy creates a preceding boundary offset by a value or interval.
func PrecedingBy(offset Expr) *FrameBoundary { return expr.PrecedingBy(offset) }

// CurrentRow creates a current row boundary.
func CurrentRow() *FrameBoundary { return expr.CurrentRow() }

// Following creates a following boundary offset by a row count.
func Following(offset int) *FrameBoundary { return expr.Following(offset) }

// FollowingBy creates a following boundary offset by a value or interval.
func FollowingBy(offset Expr) *FrameBoundary { return expr.FollowingBy(offset) }

// UnboundedFollowing creates an unbounded following boundary.
func UnboundedFollowing() *FrameBoundary { return expr.UnboundedFollowing() }

// Interval constructors for RANGE frame offsets over temporal columns.

// Days creates a day-count interval.
func Days(n int64) Expr { return expr.Days(n) }

// Months creates a month-count interval.
func Months(n int64) Expr { return expr.Months(n) }

// Years creates a year-count interval.
func Years(n int64) Expr { return expr.Years(n) }

// Hours creates an hour-count interval.
func Hours(n int64) Expr { return expr.Hours(n) }

// Minutes creates a minute-count interval.
func Minutes(n int64) Expr { return expr.Minutes(n) }

// Operator evaluates a compiled set of window expressions over sorted row
// streams. It is safe to share across goroutines; each Evaluate call owns
// its iterator state.
type Operator struct {
	op *window.Operator
}

// Config holds operator tuning knobs: spill thresholds, spill directory,
// time zone for temporal frame arithmetic, and partition parallelism.
type Config = config.Config

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config { return config.NewConfig() }

// Option configures operator construction.
type Option func(*operatorOptions)

type operatorOptions struct {
	cfg   *config.Config
	scope tally.Scope
	log   *zap.Logger
}

// WithConfig overrides the global configuration for this operator.
func WithConfig(cfg Config) Option {
	return func(o *operatorOptions) {
		o.cfg = &cfg
	}
}

// WithMetricsScope reports execution counters (spilled bytes, partitions,
// output rows) under the given scope.
func WithMetricsScope(scope tally.Scope) Option {
	return func(o *operatorOptions) {
		o.scope = scope
	}
}

// WithLogger attaches a logger for operator debug logging.
func WithLogger(log *zap.Logger) Option {
	return func(o *operatorOptions) {
		o.log = log
	}
}

// NewOperator compiles the window expressions against the input schema. All
// expressions must share one PARTITION BY and ORDER BY; unsupported frame
// shapes are rejected here.
func NewOperator(exprs []*WindowExpr, input Schema, opts ...Option) (*Operator, error) {
	var o operatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	met := metrics.Nop()
	if o.scope != nil {
		met = metrics.New(o.scope)
	}
	op, err := window.NewOperator(exprs, input, o.cfg, met, o.log)
	if err != nil {
		return nil, err
	}
	return &Operator{op: op}, nil
}

// Schema returns the output schema: the input columns followed by one
// column per window expression.
func (o *Operator) Schema() Schema {
	return o.op.Schema()
}

// Evaluate streams output rows for one sorted input source.
func (o *Operator) Evaluate(ctx context.Context, src RowSource) (*ResultIterator, error) {
	return o.op.Evaluate(ctx, 0, src)
}

// EvaluateStreams evaluates several pre-partitioned sources concurrently and
// returns the drained outputs aligned with the inputs.
func (o *Operator) EvaluateStreams(ctx context.Context, srcs []RowSource) ([][]Row, error) {
	return o.op.EvaluateStreams(ctx, srcs)
}
