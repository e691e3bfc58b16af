package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/gtk96/windmill/internal/agg"
	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/rows"
)

// frameCategory distinguishes the evaluation strategies a window function can
// require.
type frameCategory int

const (
	categoryAggregate frameCategory = iota
	categoryFramelessOffset
	categoryUnboundedOffset
	categoryUnboundedPrecedingOffset
)

func (c frameCategory) String() string {
	switch c {
	case categoryAggregate:
		return "AGGREGATE"
	case categoryFramelessOffset:
		return "FRAME_LESS_OFFSET"
	case categoryUnboundedOffset:
		return "UNBOUNDED_OFFSET"
	case categoryUnboundedPrecedingOffset:
		return "UNBOUNDED_PRECEDING_OFFSET"
	default:
		return "UNKNOWN"
	}
}

// frameKey identifies one shared frame computation. Two window expressions
// are evaluated by the same frame object iff their keys are equal. The
// disambiguator is non-empty only for null-skipping offset functions, which
// must each track their own skip cursor even under identical bounds.
type frameKey struct {
	category      frameCategory
	frameType     expr.FrameType
	lower         string
	upper         string
	disambiguator string
}

func (k frameKey) String() string {
	return fmt.Sprintf("%s/%s[%s, %s]%s", k.category, k.frameType, k.lower, k.upper, k.disambiguator)
}

// frameKind is the tagged variant driving frame-factory selection; every
// representable key maps to exactly one kind during classification, so no
// wildcard fallthrough survives to evaluation time.
type frameKind int

const (
	kindFramelessOffset frameKind = iota
	kindUnboundedOffset
	kindUnboundedPrecedingOffset
	kindWholePartitionAgg
	kindGrowingAgg
	kindShrinkingAgg
	kindSlidingAgg
)

// frameFactory instantiates a frame evaluator bound to the shared result
// buffer.
type frameFactory func(buf rows.Row) (frameEvaluator, error)

// frameGroup is one set of window expressions evaluated by a shared frame.
// The ordinal locates the group's first output slot in the result buffer.
type frameGroup struct {
	key     frameKey
	exprs   []*expr.WindowExpr
	ordinal int
	factory frameFactory
}

// classifyEnv carries the compiled inputs classification needs.
type classifyEnv struct {
	schema     rows.Schema
	orderNames []string
	orderKeys  []orderKey
	loc        *time.Location
}

// boundFrame is one window expression resolved to its effective frame and
// category.
type boundFrame struct {
	key   frameKey
	frame *expr.WindowFrame
}

// classifyFrames partitions the window expressions into frame groups. The
// pass is pure: first-seen bucketing by frame key, then cumulative ordinal
// assignment, then factory construction. All unsupported-shape errors
// surface here, before any row is processed.
func classifyFrames(exprs []*expr.WindowExpr, env classifyEnv) ([]frameGroup, error) {
	buckets := make(map[frameKey]*frameGroup)
	frames := make(map[frameKey]*expr.WindowFrame)
	var order []frameKey

	for _, we := range exprs {
		bf, err := resolveFrame(we, env)
		if err != nil {
			return nil, err
		}
		g, ok := buckets[bf.key]
		if !ok {
			g = &frameGroup{key: bf.key}
			buckets[bf.key] = g
			frames[bf.key] = bf.frame
			order = append(order, bf.key)
		}
		g.exprs = append(g.exprs, we)
	}

	groups := make([]frameGroup, 0, len(order))
	ordinal := 0
	for _, key := range order {
		g := buckets[key]
		g.ordinal = ordinal
		ordinal += len(g.exprs)

		factory, err := newFrameFactory(g.key, frames[key], g.exprs, g.ordinal, env)
		if err != nil {
			return nil, err
		}
		g.factory = factory
		groups = append(groups, *g)
	}
	return groups, nil
}

// resolveFrame computes the effective frame and frame key of one window
// expression.
func resolveFrame(we *expr.WindowExpr, env classifyEnv) (boundFrame, error) {
	spec := we.Window()

	switch fn := we.Function().(type) {
	case *expr.AggregationExpr:
		frame := effectiveFrame(spec)
		return boundFrame{
			key: frameKey{
				category:  categoryAggregate,
				frameType: frame.FrameType(),
				lower:     frame.Start().String(),
				upper:     frame.End().String(),
			},
			frame: frame,
		}, nil

	case *expr.WindowFunctionExpr:
		return resolveWindowFunctionFrame(fn, spec)

	default:
		return boundFrame{}, errors.NewConfigurationError("Classify",
			fmt.Sprintf("unsupported window function kind %T", we.Function()))
	}
}

func resolveWindowFunctionFrame(fn *expr.WindowFunctionExpr, spec *expr.WindowSpec) (boundFrame, error) {
	switch fn.FuncName() {
	case expr.WinNameRowNumber, expr.WinNameRank, expr.WinNameDenseRank:
		// Ranking functions are running aggregates over the rows seen so far.
		frame := expr.NewWindow().
			Rows(expr.Between(expr.UnboundedPreceding(), expr.CurrentRow())).Frame()
		return boundFrame{
			key: frameKey{
				category:  categoryAggregate,
				frameType: frame.FrameType(),
				lower:     frame.Start().String(),
				upper:     frame.End().String(),
			},
			frame: frame,
		}, nil

	case expr.WinNameLag, expr.WinNameLead:
		off, err := offsetArg(fn)
		if err != nil {
			return boundFrame{}, err
		}
		if fn.FuncName() == expr.WinNameLag {
			off = -off
		}
		var frame *expr.WindowFrame
		switch {
		case off < 0:
			frame = expr.NewWindow().
				Rows(expr.Between(expr.Preceding(-off), expr.Preceding(-off))).Frame()
		case off > 0:
			frame = expr.NewWindow().
				Rows(expr.Between(expr.Following(off), expr.Following(off))).Frame()
		default:
			frame = expr.NewWindow().
				Rows(expr.Between(expr.CurrentRow(), expr.CurrentRow())).Frame()
		}
		return boundFrame{
			key: frameKey{
				category:      categoryFramelessOffset,
				frameType:     frame.FrameType(),
				lower:         frame.Start().String(),
				upper:         frame.End().String(),
				disambiguator: nullSkipDisambiguator(fn),
			},
			frame: frame,
		}, nil

	case expr.WinNameNthValue:
		frame := spec.Frame()
		if frame == nil {
			frame = expr.NewWindow().
				Rows(expr.Between(expr.UnboundedPreceding(), expr.CurrentRow())).Frame()
		}
		var category frameCategory
		switch {
		case frame.Start().Kind() == expr.BoundaryUnboundedPreceding &&
			frame.End().Kind() == expr.BoundaryUnboundedFollowing:
			category = categoryUnboundedOffset
		case frame.Start().Kind() == expr.BoundaryUnboundedPreceding &&
			frame.End().Kind() == expr.BoundaryCurrentRow:
			category = categoryUnboundedPrecedingOffset
		default:
			return boundFrame{}, errors.NewUnsupportedFrameError("Classify", frame.String())
		}
		return boundFrame{
			key: frameKey{
				category:      category,
				frameType:     frame.FrameType(),
				lower:         frame.Start().String(),
				upper:         frame.End().String(),
				disambiguator: nullSkipDisambiguator(fn),
			},
			frame: frame,
		}, nil

	default:
		return boundFrame{}, errors.NewConfigurationError("Classify",
			"unsupported window function "+fn.FuncName())
	}
}

// effectiveFrame resolves an aggregate window's frame, applying the SQL
// defaults when none is declared: running RANGE frame with ORDER BY, whole
// partition without.
func effectiveFrame(spec *expr.WindowSpec) *expr.WindowFrame {
	if f := spec.Frame(); f != nil {
		return f
	}
	if len(spec.Order()) > 0 {
		return expr.NewWindow().
			Range(expr.Between(expr.UnboundedPreceding(), expr.CurrentRow())).Frame()
	}
	return expr.NewWindow().
		Rows(expr.Between(expr.UnboundedPreceding(), expr.UnboundedFollowing())).Frame()
}

// nullSkipDisambiguator hashes the canonicalized input expressions of a
// null-skipping offset function. Functions over different inputs must never
// share a frame even under identical bounds, since each tracks its own
// skipped-row cursor.
func nullSkipDisambiguator(fn *expr.WindowFunctionExpr) string {
	if !fn.IgnoresNulls() {
		return ""
	}
	parts := make([]string, 0, len(fn.Args()))
	for _, a := range fn.Args() {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("#%016x", xxhash.Sum64String(strings.Join(parts, ",")))
}

func offsetArg(fn *expr.WindowFunctionExpr) (int, error) {
	args := fn.Args()
	if len(args) < 2 {
		return 1, nil
	}
	lit, ok := args[1].(*expr.LiteralExpr)
	if !ok {
		return 0, errors.NewConfigurationError("Classify",
			fn.FuncName()+" offset must be an integer literal")
	}
	n, ok := lit.IntValue()
	if !ok {
		return 0, errors.NewConfigurationError("Classify",
			fn.FuncName()+" offset must be an integer literal")
	}
	return int(n), nil
}

// newFrameFactory selects the frame kind for a key and builds the factory.
// Bound orderings are stateless and shared; aggregate processors are built
// per evaluator, with an eager construction pass so that configuration
// errors abort before evaluation starts.
func newFrameFactory(
	key frameKey,
	frame *expr.WindowFrame,
	groupExprs []*expr.WindowExpr,
	ordinal int,
	env classifyEnv,
) (frameFactory, error) {
	kind, err := selectFrameKind(key, frame)
	if err != nil {
		return nil, err
	}

	switch kind {
	case kindFramelessOffset, kindUnboundedOffset, kindUnboundedPrecedingOffset:
		specs, err := compileOffsetSpecs(groupExprs, env)
		if err != nil {
			return nil, err
		}
		return func(buf rows.Row) (frameEvaluator, error) {
			switch kind {
			case kindFramelessOffset:
				return newFramelessOffsetFrame(specs, buf, ordinal), nil
			case kindUnboundedOffset:
				return newUnboundedOffsetFrame(specs, buf, ordinal), nil
			default:
				return newUnboundedPrecedingOffsetFrame(specs, buf, ordinal), nil
			}
		}, nil

	case kindWholePartitionAgg, kindGrowingAgg, kindShrinkingAgg, kindSlidingAgg:
		// Construct once up front so configuration errors surface before any
		// row is read. The factory then builds a fresh processor per
		// evaluator: accumulators are mutable and must never be shared
		// between concurrent Evaluate calls.
		if _, err := newProcessorHandle(groupExprs, ordinal, env); err != nil {
			return nil, err
		}
		slots := len(groupExprs)
		var err error

		var lower, upper boundOrdering
		if kind == kindGrowingAgg || kind == kindSlidingAgg {
			upper, err = newBoundOrdering(frame.FrameType(), frame.End(),
				env.orderKeys, env.schema, env.orderNames, env.loc)
			if err != nil {
				return nil, err
			}
		}
		if kind == kindShrinkingAgg || kind == kindSlidingAgg {
			lower, err = newBoundOrdering(frame.FrameType(), frame.Start(),
				env.orderKeys, env.schema, env.orderNames, env.loc)
			if err != nil {
				return nil, err
			}
		}

		return func(buf rows.Row) (frameEvaluator, error) {
			proc, err := newProcessorHandle(groupExprs, ordinal, env)
			if err != nil {
				return nil, err
			}
			switch kind {
			case kindWholePartitionAgg:
				return newWholePartitionFrame(proc, buf, ordinal, slots), nil
			case kindGrowingAgg:
				return newGrowingFrame(proc, upper, buf, ordinal, slots), nil
			case kindShrinkingAgg:
				return newShrinkingFrame(proc, lower, buf, ordinal, slots), nil
			default:
				return newSlidingFrame(proc, lower, upper, buf, ordinal, slots), nil
			}
		}, nil

	default:
		return nil, errors.NewUnsupportedFrameError("Classify", key.String())
	}
}

func selectFrameKind(key frameKey, frame *expr.WindowFrame) (frameKind, error) {
	switch key.category {
	case categoryFramelessOffset:
		return kindFramelessOffset, nil
	case categoryUnboundedOffset:
		return kindUnboundedOffset, nil
	case categoryUnboundedPrecedingOffset:
		return kindUnboundedPrecedingOffset, nil
	case categoryAggregate:
		lowerUnbounded := frame.Start().Kind() == expr.BoundaryUnboundedPreceding
		upperUnbounded := frame.End().Kind() == expr.BoundaryUnboundedFollowing
		switch {
		case lowerUnbounded && upperUnbounded:
			return kindWholePartitionAgg, nil
		case lowerUnbounded:
			return kindGrowingAgg, nil
		case upperUnbounded:
			return kindShrinkingAgg, nil
		default:
			return kindSlidingAgg, nil
		}
	default:
		return 0, errors.NewUnsupportedFrameError("Classify", key.String())
	}
}

// newProcessorHandle builds the aggregate processor for a group, or returns
// nil when the group contains a foreign user-defined aggregate. Foreign
// functions are routed through a different evaluation path that never calls
// the processor, so construction is skipped rather than rejected.
func newProcessorHandle(groupExprs []*expr.WindowExpr, ordinal int, env classifyEnv) (*agg.Processor, error) {
	for _, we := range groupExprs {
		if a, ok := we.Function().(*expr.AggregationExpr); ok && a.Foreign() {
			return nil, nil
		}
	}

	fns := make([]agg.Function, 0, len(groupExprs))
	for _, we := range groupExprs {
		switch fn := we.Function().(type) {
		case *expr.AggregationExpr:
			a, err := agg.NewAggregate(fn, env.schema)
			if err != nil {
				return nil, err
			}
			fns = append(fns, a)
		case *expr.WindowFunctionExpr:
			switch fn.FuncName() {
			case expr.WinNameRowNumber:
				fns = append(fns, agg.NewRowNumber())
			case expr.WinNameRank:
				fns = append(fns, agg.NewRank(rows.NewRowComparator(sortKeys(env.orderKeys))))
			case expr.WinNameDenseRank:
				fns = append(fns, agg.NewDenseRank(rows.NewRowComparator(sortKeys(env.orderKeys))))
			default:
				return nil, errors.NewConfigurationError("Classify",
					"unsupported aggregate-category function "+fn.FuncName())
			}
		default:
			return nil, errors.NewConfigurationError("Classify",
				fmt.Sprintf("unsupported window function kind %T", we.Function()))
		}
	}
	return agg.NewProcessor(fns, ordinal), nil
}

// compileOffsetSpecs compiles the offset functions of one group.
func compileOffsetSpecs(groupExprs []*expr.WindowExpr, env classifyEnv) ([]offsetSpec, error) {
	specs := make([]offsetSpec, 0, len(groupExprs))
	for _, we := range groupExprs {
		fn, ok := we.Function().(*expr.WindowFunctionExpr)
		if !ok {
			return nil, errors.NewConfigurationError("Classify",
				fmt.Sprintf("offset frame over non-offset function %T", we.Function()))
		}
		col, ok := fn.Args()[0].(*expr.ColumnExpr)
		if !ok {
			return nil, errors.NewConfigurationError("Classify",
				fn.FuncName()+" input must be a column expression")
		}
		proj, err := rows.NewColumnProjection(env.schema, col.Name())
		if err != nil {
			return nil, err
		}
		off, err := offsetArg(fn)
		if err != nil {
			return nil, err
		}
		spec := offsetSpec{input: proj, ignoreNulls: fn.IgnoresNulls()}
		switch fn.FuncName() {
		case expr.WinNameLag:
			spec.offset = -off
		case expr.WinNameLead:
			spec.offset = off
		case expr.WinNameNthValue:
			if off < 1 {
				return nil, errors.NewConfigurationError("Classify",
					"nth_value position must be a positive integer literal")
			}
			spec.target = off
		default:
			return nil, errors.NewConfigurationError("Classify",
				"unsupported offset function "+fn.FuncName())
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
