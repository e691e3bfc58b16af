// Package agg provides the aggregate-state machinery consumed by
// aggregate-category window frames: per-function accumulators with
// reset/update/eval lifecycle, batched behind a Processor that writes one
// output slot per function.
package agg

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/rows"
)

// Function is one aggregate accumulator. Update is called once per row
// admitted to the frame, Eval returns the current aggregate value, and Reset
// restores the initial state so the accumulator can be reused.
type Function interface {
	Reset()
	Update(r rows.Row) error
	Eval() (any, error)
}

// Processor drives the aggregate state for one frame group. All functions of
// the group share the update cadence; Eval writes one value per function into
// consecutive result-buffer slots starting at the group ordinal.
type Processor struct {
	fns     []Function
	ordinal int
}

// NewProcessor creates a processor over the given functions, writing results
// at the given result-buffer ordinal.
func NewProcessor(fns []Function, ordinal int) *Processor {
	return &Processor{fns: fns, ordinal: ordinal}
}

// Reset restores every function to its initial state.
func (p *Processor) Reset() {
	for _, fn := range p.fns {
		fn.Reset()
	}
}

// Update feeds one row to every function.
func (p *Processor) Update(r rows.Row) error {
	for _, fn := range p.fns {
		if err := fn.Update(r); err != nil {
			return err
		}
	}
	return nil
}

// Eval writes the current value of every function into dst at the processor's
// ordinal.
func (p *Processor) Eval(dst rows.Row) error {
	for i, fn := range p.fns {
		v, err := fn.Eval()
		if err != nil {
			return err
		}
		dst[p.ordinal+i] = v
	}
	return nil
}

// NumFuncs returns the number of functions in the group.
func (p *Processor) NumFuncs() int {
	return len(p.fns)
}

// NewAggregate compiles an aggregation expression into an accumulator
// against the input schema.
func NewAggregate(e *expr.AggregationExpr, schema rows.Schema) (Function, error) {
	col, ok := e.Column().(*expr.ColumnExpr)
	if !ok {
		return nil, errors.NewConfigurationError("Aggregate",
			"aggregate input must be a column expression")
	}
	proj, err := rows.NewColumnProjection(schema, col.Name())
	if err != nil {
		return nil, err
	}

	switch e.AggType() {
	case expr.AggSum:
		return newSumFunc(proj)
	case expr.AggCount:
		return &countFunc{input: proj}, nil
	case expr.AggMean:
		return newMeanFunc(proj)
	case expr.AggMin:
		return &minMaxFunc{input: proj, dt: proj.DataType(), wantMax: false}, nil
	case expr.AggMax:
		return &minMaxFunc{input: proj, dt: proj.DataType(), wantMax: true}, nil
	default:
		return nil, errors.NewConfigurationError("Aggregate",
			"no native accumulator for "+e.FuncName())
	}
}

func newSumFunc(proj *rows.ColumnProjection) (Function, error) {
	switch proj.DataType().ID() {
	case arrow.INT64:
		return &sumInt64Func{input: proj}, nil
	case arrow.FLOAT64:
		return &sumFloat64Func{input: proj}, nil
	case arrow.DECIMAL128:
		return &sumDecimalFunc{input: proj}, nil
	default:
		return nil, errors.NewUnsupportedTypeError("Aggregate", proj.DataType().String())
	}
}

func newMeanFunc(proj *rows.ColumnProjection) (Function, error) {
	switch proj.DataType().ID() {
	case arrow.INT64, arrow.FLOAT64:
		return &meanFunc{input: proj}, nil
	default:
		return nil, errors.NewUnsupportedTypeError("Aggregate", proj.DataType().String())
	}
}

// sumInt64Func sums non-null int64 values; NULL over an empty frame.
type sumInt64Func struct {
	input *rows.ColumnProjection
	sum   int64
	seen  int64
}

func (f *sumInt64Func) Reset() {
	f.sum, f.seen = 0, 0
}

func (f *sumInt64Func) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	if v != nil {
		f.sum += v.(int64)
		f.seen++
	}
	return nil
}

func (f *sumInt64Func) Eval() (any, error) {
	if f.seen == 0 {
		return nil, nil
	}
	return f.sum, nil
}

type sumFloat64Func struct {
	input *rows.ColumnProjection
	sum   float64
	seen  int64
}

func (f *sumFloat64Func) Reset() {
	f.sum, f.seen = 0, 0
}

func (f *sumFloat64Func) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	if v != nil {
		f.sum += v.(float64)
		f.seen++
	}
	return nil
}

func (f *sumFloat64Func) Eval() (any, error) {
	if f.seen == 0 {
		return nil, nil
	}
	return f.sum, nil
}

// sumDecimalFunc sums decimal128 values without overflow checking.
type sumDecimalFunc struct {
	input *rows.ColumnProjection
	sum   decimal128.Num
	seen  int64
}

func (f *sumDecimalFunc) Reset() {
	f.sum, f.seen = decimal128.Num{}, 0
}

func (f *sumDecimalFunc) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	if v != nil {
		f.sum = f.sum.Add(v.(decimal128.Num))
		f.seen++
	}
	return nil
}

func (f *sumDecimalFunc) Eval() (any, error) {
	if f.seen == 0 {
		return nil, nil
	}
	return f.sum, nil
}

// countFunc counts non-null values.
type countFunc struct {
	input *rows.ColumnProjection
	count int64
}

func (f *countFunc) Reset() {
	f.count = 0
}

func (f *countFunc) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	if v != nil {
		f.count++
	}
	return nil
}

func (f *countFunc) Eval() (any, error) {
	return f.count, nil
}

// meanFunc averages non-null numeric values as float64.
type meanFunc struct {
	input *rows.ColumnProjection
	sum   float64
	seen  int64
}

func (f *meanFunc) Reset() {
	f.sum, f.seen = 0, 0
}

func (f *meanFunc) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
	case int64:
		f.sum += float64(x)
		f.seen++
	case float64:
		f.sum += x
		f.seen++
	}
	return nil
}

func (f *meanFunc) Eval() (any, error) {
	if f.seen == 0 {
		return nil, nil
	}
	return f.sum / float64(f.seen), nil
}

// minMaxFunc tracks the extremum of non-null values under the column type's
// comparison.
type minMaxFunc struct {
	input   *rows.ColumnProjection
	dt      arrow.DataType
	wantMax bool
	best    any
}

func (f *minMaxFunc) Reset() {
	f.best = nil
}

func (f *minMaxFunc) Update(r rows.Row) error {
	v, err := f.input.Eval(r)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if f.best == nil {
		f.best = v
		return nil
	}
	cmp, err := rows.CompareValues(f.dt, v, f.best)
	if err != nil {
		return err
	}
	if (f.wantMax && cmp > 0) || (!f.wantMax && cmp < 0) {
		f.best = v
	}
	return nil
}

func (f *minMaxFunc) Eval() (any, error) {
	return f.best, nil
}
