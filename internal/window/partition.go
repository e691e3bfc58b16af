// Package window implements streaming window-function evaluation: frame
// classification, bound orderings, frame evaluators and the per-partition
// operator driving them over a sorted row stream.
package window

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/gtk96/windmill/internal/config"
	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/metrics"
	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/rowstore"
)

// RowSource supplies input rows sorted by partition key, then by the window
// ordering within each partition. Next returns io.EOF when the stream ends.
type RowSource interface {
	Next() (rows.Row, error)
}

// Operator is a compiled window evaluation plan: one shared PARTITION BY and
// ORDER BY, any number of window expressions grouped into frames. An Operator
// is immutable after construction and can drive any number of concurrent
// Evaluate calls, each with its own iterator state.
type Operator struct {
	exprs  []*expr.WindowExpr
	input  rows.Schema
	output rows.Schema
	groups []frameGroup
	slots  int

	partProj   *rows.KeyProjection
	resultProj rows.RowProjection

	cfg *config.Config
	met *metrics.ExecMetrics
	log *zap.Logger
}

// NewOperator compiles the window expressions against the input schema. All
// expressions must share one PARTITION BY and ORDER BY; unsupported frame
// shapes and bound types are rejected here, before any row is read.
func NewOperator(
	exprs []*expr.WindowExpr,
	input rows.Schema,
	cfg *config.Config,
	met *metrics.ExecMetrics,
	log *zap.Logger,
) (*Operator, error) {
	if len(exprs) == 0 {
		return nil, errors.NewConfigurationError("Operator", "no window expressions")
	}
	if cfg == nil {
		global := config.GetGlobalConfig()
		cfg = &global
	}
	if met == nil {
		met = metrics.Nop()
	}
	if log == nil {
		log = zap.NewNop()
	}

	spec := exprs[0].Window()
	for _, we := range exprs[1:] {
		if !sameSpec(spec, we.Window()) {
			return nil, errors.ErrMismatchedWindowSpec
		}
	}

	loc := time.UTC
	if cfg.TimeZone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, errors.NewConfigurationError("Operator", "invalid time zone "+cfg.TimeZone)
		}
	}

	orderNames := make([]string, 0, len(spec.Order()))
	orderKeys := make([]orderKey, 0, len(spec.Order()))
	for _, o := range spec.Order() {
		idx, ok := input.FieldIndex(o.Column())
		if !ok {
			return nil, errors.NewColumnNotFoundError("Operator", o.Column())
		}
		orderNames = append(orderNames, o.Column())
		orderKeys = append(orderKeys, orderKey{
			index:      idx,
			dt:         input.Field(idx).Type,
			descending: !o.Ascending(),
		})
	}

	groups, err := classifyFrames(exprs, classifyEnv{
		schema:     input,
		orderNames: orderNames,
		orderKeys:  orderKeys,
		loc:        loc,
	})
	if err != nil {
		return nil, err
	}

	var partProj *rows.KeyProjection
	if len(spec.Partitions()) > 0 {
		partProj, err = rows.NewKeyProjection(input, spec.Partitions()...)
		if err != nil {
			return nil, err
		}
	}

	output, slots, err := outputSchema(groups, input)
	if err != nil {
		return nil, err
	}

	log.Debug("window operator compiled",
		zap.Int("expressions", len(exprs)),
		zap.Int("frame_groups", len(groups)),
		zap.String("spec", spec.String()))

	return &Operator{
		exprs:      exprs,
		input:      input,
		output:     output,
		groups:     groups,
		slots:      slots,
		partProj:   partProj,
		resultProj: rows.ConcatProjection{},
		cfg:        cfg,
		met:        met,
		log:        log,
	}, nil
}

// Schema returns the output schema: the input columns followed by one column
// per window expression, in classification order.
func (op *Operator) Schema() rows.Schema {
	return op.output
}

// Evaluate starts evaluation over one sorted row source. The taskIndex tags
// log lines when several streams run concurrently.
func (op *Operator) Evaluate(ctx context.Context, taskIndex int, src RowSource) (*ResultIterator, error) {
	buffer := rowstore.NewBuffer(op.input, rowstore.Options{
		InMemoryRowThreshold: op.cfg.InMemoryRowThreshold,
		SpillBatchRows:       op.cfg.SpillBatchRows,
		SpillDir:             op.cfg.SpillDir,
	}, nil)

	windowBuf := make(rows.Row, op.slots)
	frames := make([]frameEvaluator, len(op.groups))
	for i, g := range op.groups {
		f, err := g.factory(windowBuf)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}

	return &ResultIterator{
		op:        op,
		ctx:       ctx,
		taskIndex: taskIndex,
		src:       src,
		buffer:    buffer,
		frames:    frames,
		windowBuf: windowBuf,
		state:     awaitingPartition,
	}, nil
}

func sameSpec(a, b *expr.WindowSpec) bool {
	if len(a.Partitions()) != len(b.Partitions()) || len(a.Order()) != len(b.Order()) {
		return false
	}
	for i, p := range a.Partitions() {
		if b.Partitions()[i] != p {
			return false
		}
	}
	for i, o := range a.Order() {
		if b.Order()[i].Column() != o.Column() || b.Order()[i].Ascending() != o.Ascending() {
			return false
		}
	}
	return true
}

// outputSchema appends one field per window expression in classification
// order, so field positions line up with result-buffer slots.
func outputSchema(groups []frameGroup, input rows.Schema) (rows.Schema, int, error) {
	slots := 0
	for _, g := range groups {
		slots += len(g.exprs)
	}
	fields := make([]rows.Field, 0, slots)
	for _, g := range groups {
		for _, we := range g.exprs {
			dt, err := outputType(we, input)
			if err != nil {
				return rows.Schema{}, 0, err
			}
			fields = append(fields, rows.Field{Name: we.Alias(), Type: dt})
		}
	}
	return input.Concat(rows.NewSchema(fields...)), slots, nil
}

func outputType(we *expr.WindowExpr, input rows.Schema) (arrow.DataType, error) {
	switch fn := we.Function().(type) {
	case *expr.AggregationExpr:
		switch fn.AggType() {
		case expr.AggCount:
			return arrow.PrimitiveTypes.Int64, nil
		case expr.AggMean:
			return arrow.PrimitiveTypes.Float64, nil
		case expr.AggForeign:
			return arrow.Null, nil
		default:
			col, ok := fn.Column().(*expr.ColumnExpr)
			if !ok {
				return nil, errors.NewConfigurationError("Operator",
					fn.FuncName()+" input must be a column expression")
			}
			idx, ok := input.FieldIndex(col.Name())
			if !ok {
				return nil, errors.NewColumnNotFoundError("Operator", col.Name())
			}
			return input.Field(idx).Type, nil
		}
	case *expr.WindowFunctionExpr:
		switch fn.FuncName() {
		case expr.WinNameRowNumber, expr.WinNameRank, expr.WinNameDenseRank:
			return arrow.PrimitiveTypes.Int64, nil
		default:
			col, ok := fn.Args()[0].(*expr.ColumnExpr)
			if !ok {
				return nil, errors.NewConfigurationError("Operator",
					fn.FuncName()+" input must be a column expression")
			}
			idx, ok := input.FieldIndex(col.Name())
			if !ok {
				return nil, errors.NewColumnNotFoundError("Operator", col.Name())
			}
			return input.Field(idx).Type, nil
		}
	default:
		return nil, errors.NewConfigurationError("Operator", "unsupported window function")
	}
}

// iterState tracks where the iterator is in the partition lifecycle.
type iterState int

const (
	awaitingPartition iterState = iota
	inPartition
	exhausted
)

// ResultIterator streams the operator's output rows. The caller drives it
// with HasNext/Next; Next without a successful HasNext fails with
// ErrNoMoreRows rather than guessing.
type ResultIterator struct {
	op        *Operator
	ctx       context.Context
	taskIndex int
	src       RowSource

	buffer    *rowstore.Buffer
	frames    []frameEvaluator
	windowBuf rows.Row

	state   iterState
	srcDone bool
	// first row of the next partition, read during lookahead
	pending    rows.Row
	currentKey rows.Row

	partIt *rowstore.Iterator
	rowIdx int

	ready bool
	err   error
}

// Err returns the error that stopped iteration, nil after a clean drain.
func (r *ResultIterator) Err() error {
	return r.err
}

// HasNext reports whether another output row is available, loading the next
// partition when the current one is drained. Errors encountered while
// loading are deferred to the following Next call.
func (r *ResultIterator) HasNext() bool {
	if r.err != nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	for {
		switch r.state {
		case inPartition:
			if r.rowIdx < r.buffer.Len() {
				r.ready = true
				return true
			}
			if err := r.finishPartition(); err != nil {
				r.err = err
				return false
			}
		case awaitingPartition:
			if err := r.loadPartition(); err != nil {
				r.err = err
				return false
			}
			if r.state == exhausted {
				return false
			}
		case exhausted:
			return false
		}
	}
}

// Next returns the next output row: the input row columns followed by the
// window values, projected through the result projection.
func (r *ResultIterator) Next() (rows.Row, error) {
	if !r.ready && !r.HasNext() {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.ErrNoMoreRows
	}
	r.ready = false

	current, err := r.partIt.Next()
	if err != nil {
		return nil, errors.NewInternalError("Evaluate", err)
	}
	for _, f := range r.frames {
		if err := f.write(r.rowIdx, current); err != nil {
			return nil, err
		}
	}
	r.rowIdx++

	out, err := r.op.resultProj.Project(current.Concat(r.windowBuf))
	if err != nil {
		return nil, err
	}
	r.op.met.AddRowsOut(1)
	return out, nil
}

// loadPartition buffers the next partition in full, then prepares every
// frame over it. The row that breaks the partition key is held back as the
// seed of the following partition.
func (r *ResultIterator) loadPartition() error {
	first := r.pending
	r.pending = nil
	if first == nil {
		row, err := r.nextInput()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				r.state = exhausted
				return nil
			}
			return err
		}
		first = row
	}

	if r.op.partProj != nil {
		key, err := r.op.partProj.Project(first)
		if err != nil {
			return err
		}
		r.currentKey = key
	}
	if err := r.buffer.Add(first); err != nil {
		return err
	}

	for {
		row, err := r.nextInput()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				r.srcDone = true
				break
			}
			return err
		}
		if r.op.partProj != nil {
			key, err := r.op.partProj.Project(row)
			if err != nil {
				return err
			}
			same, err := r.op.partProj.KeysEqual(r.currentKey, key)
			if err != nil {
				return err
			}
			if !same {
				r.pending = row
				break
			}
		}
		if err := r.buffer.Add(row); err != nil {
			return err
		}
	}

	for _, f := range r.frames {
		if err := f.prepare(r.buffer); err != nil {
			return err
		}
	}
	var err error
	r.partIt, err = r.buffer.NewIterator()
	if err != nil {
		return err
	}
	r.rowIdx = 0
	r.state = inPartition
	return nil
}

// finishPartition records spill accounting exactly once, releases the
// buffer, and decides whether another partition follows.
func (r *ResultIterator) finishPartition() error {
	spilled := r.buffer.SpillSize()
	if spilled > 0 {
		r.op.met.AddSpillBytes(spilled)
		r.op.log.Debug("partition spilled",
			zap.Int("task", r.taskIndex),
			zap.Int64("bytes", spilled),
			zap.Int("rows", r.buffer.Len()))
	}
	r.op.met.IncPartitions()
	if err := r.buffer.Clear(); err != nil {
		return err
	}
	r.partIt = nil
	if r.pending == nil && r.srcDone {
		r.state = exhausted
	} else {
		r.state = awaitingPartition
	}
	return nil
}

func (r *ResultIterator) nextInput() (rows.Row, error) {
	if r.srcDone {
		return nil, io.EOF
	}
	return r.src.Next()
}
