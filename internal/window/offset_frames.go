package window

import (
	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/rowstore"
)

// offsetSpec is one compiled offset function within a frame group.
type offsetSpec struct {
	input       *rows.ColumnProjection
	offset      int // signed row distance: negative for LAG, positive for LEAD
	target      int // 1-based target position for NTH_VALUE categories
	ignoreNulls bool
}

// nonNullIndex records where the non-null input values of a partition live.
// Null-skipping offset functions pre-scan the partition once in prepare and
// answer writes with cursor arithmetic over this index.
type nonNullIndex struct {
	vals []any
	idxs []int
}

func buildNonNullIndex(part *rowstore.Buffer, input *rows.ColumnProjection) (*nonNullIndex, error) {
	in, err := newPeekIterator(part, 0)
	if err != nil {
		return nil, err
	}
	nn := &nonNullIndex{}
	for in.hasNext {
		v, err := input.Eval(in.next)
		if err != nil {
			return nil, err
		}
		if v != nil {
			nn.vals = append(nn.vals, v)
			nn.idxs = append(nn.idxs, in.nextIdx)
		}
		if err := in.advance(); err != nil {
			return nil, err
		}
	}
	return nn, nil
}

// framelessOffsetFrame serves LAG/LEAD: a fixed row-distance lookup with no
// range machinery. Each function in the group owns one output slot and its
// own null-skip cursor.
type framelessOffsetFrame struct {
	fns     []offsetSpec
	buf     rows.Row
	ordinal int

	// respect-nulls LEAD lookahead iterators, one per function
	fwd []*peekIterator
	// respect-nulls LAG ring buffers of recent input values, one per function
	ring [][]any
	seen int
	// null-skip cursors: position of the first non-null at or after the
	// current row, one per function
	nn     []*nonNullIndex
	cursor []int
}

func newFramelessOffsetFrame(fns []offsetSpec, buf rows.Row, ordinal int) *framelessOffsetFrame {
	return &framelessOffsetFrame{
		fns:     fns,
		buf:     buf,
		ordinal: ordinal,
		fwd:     make([]*peekIterator, len(fns)),
		ring:    make([][]any, len(fns)),
		nn:      make([]*nonNullIndex, len(fns)),
		cursor:  make([]int, len(fns)),
	}
}

func (f *framelessOffsetFrame) prepare(part *rowstore.Buffer) error {
	f.seen = 0
	for i, fn := range f.fns {
		f.fwd[i] = nil
		f.ring[i] = nil
		f.nn[i] = nil
		f.cursor[i] = 0
		switch {
		case fn.offset == 0:
			// distance zero reads the current row directly, no state
		case fn.ignoreNulls:
			nn, err := buildNonNullIndex(part, fn.input)
			if err != nil {
				return err
			}
			f.nn[i] = nn
		case fn.offset > 0:
			it, err := newPeekIterator(part, 0)
			if err != nil {
				return err
			}
			f.fwd[i] = it
		default:
			f.ring[i] = make([]any, -fn.offset)
		}
	}
	return nil
}

func (f *framelessOffsetFrame) write(rowIdx int, current rows.Row) error {
	for i, fn := range f.fns {
		var out any
		var err error
		switch {
		case fn.offset == 0:
			out, err = fn.input.Eval(current)
		case fn.ignoreNulls:
			out = f.writeSkipNulls(i, fn, rowIdx)
		case fn.offset > 0:
			out, err = f.writeLead(i, fn, rowIdx)
		default:
			out, err = f.writeLag(i, fn, current)
		}
		if err != nil {
			return err
		}
		f.buf[f.ordinal+i] = out
	}
	f.seen++
	return nil
}

// writeLead resolves the row at rowIdx+offset through a forward iterator that
// trails exactly offset rows ahead of the write cursor.
func (f *framelessOffsetFrame) writeLead(i int, fn offsetSpec, rowIdx int) (any, error) {
	it := f.fwd[i]
	target := rowIdx + fn.offset
	for it.hasNext && it.nextIdx < target {
		if err := it.advance(); err != nil {
			return nil, err
		}
	}
	if !it.hasNext || it.nextIdx != target {
		return nil, nil
	}
	return fn.input.Eval(it.next)
}

// writeLag resolves the row at rowIdx+offset (offset < 0) from a ring of the
// last |offset| input values.
func (f *framelessOffsetFrame) writeLag(i int, fn offsetSpec, current rows.Row) (any, error) {
	k := -fn.offset
	ring := f.ring[i]
	var out any
	if f.seen >= k {
		out = ring[f.seen%k]
	}
	v, err := fn.input.Eval(current)
	if err != nil {
		return nil, err
	}
	ring[f.seen%k] = v
	return out, nil
}

// writeSkipNulls resolves the k-th non-null value before (LAG) or after
// (LEAD) the current row via the pre-scanned non-null index.
func (f *framelessOffsetFrame) writeSkipNulls(i int, fn offsetSpec, rowIdx int) any {
	nn := f.nn[i]
	// advance the cursor to the first non-null at or after the current row
	for f.cursor[i] < len(nn.idxs) && nn.idxs[f.cursor[i]] < rowIdx {
		f.cursor[i]++
	}
	cur := f.cursor[i]
	if fn.offset > 0 {
		// skip the current row itself when it is non-null
		start := cur
		if start < len(nn.idxs) && nn.idxs[start] == rowIdx {
			start++
		}
		pos := start + fn.offset - 1
		if pos >= len(nn.vals) {
			return nil
		}
		return nn.vals[pos]
	}
	pos := cur + fn.offset // offset negative: count back from the current row
	if pos < 0 {
		return nil
	}
	return nn.vals[pos]
}

// unboundedOffsetFrame serves NTH_VALUE over the whole partition: the value
// is fixed in prepare and replayed for every row.
type unboundedOffsetFrame struct {
	fns     []offsetSpec
	buf     rows.Row
	ordinal int

	cached []any
}

func newUnboundedOffsetFrame(fns []offsetSpec, buf rows.Row, ordinal int) *unboundedOffsetFrame {
	return &unboundedOffsetFrame{fns: fns, buf: buf, ordinal: ordinal, cached: make([]any, len(fns))}
}

func (f *unboundedOffsetFrame) prepare(part *rowstore.Buffer) error {
	for i, fn := range f.fns {
		f.cached[i] = nil
		in, err := newPeekIterator(part, 0)
		if err != nil {
			return err
		}
		seen := 0
		for in.hasNext {
			v, err := fn.input.Eval(in.next)
			if err != nil {
				return err
			}
			if !fn.ignoreNulls || v != nil {
				seen++
				if seen == fn.target {
					f.cached[i] = v
					break
				}
			}
			if err := in.advance(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *unboundedOffsetFrame) write(int, rows.Row) error {
	for i := range f.fns {
		f.buf[f.ordinal+i] = f.cached[i]
	}
	return nil
}

// unboundedPrecedingOffsetFrame serves NTH_VALUE over [UNBOUNDED PRECEDING,
// CURRENT ROW]: the value is null until the target position enters the frame
// and fixed afterwards.
type unboundedPrecedingOffsetFrame struct {
	fns     []offsetSpec
	buf     rows.Row
	ordinal int

	found []bool
	value []any
	seen  []int
}

func newUnboundedPrecedingOffsetFrame(fns []offsetSpec, buf rows.Row, ordinal int) *unboundedPrecedingOffsetFrame {
	return &unboundedPrecedingOffsetFrame{
		fns:     fns,
		buf:     buf,
		ordinal: ordinal,
		found:   make([]bool, len(fns)),
		value:   make([]any, len(fns)),
		seen:    make([]int, len(fns)),
	}
}

func (f *unboundedPrecedingOffsetFrame) prepare(*rowstore.Buffer) error {
	for i := range f.fns {
		f.found[i] = false
		f.value[i] = nil
		f.seen[i] = 0
	}
	return nil
}

func (f *unboundedPrecedingOffsetFrame) write(_ int, current rows.Row) error {
	for i, fn := range f.fns {
		if !f.found[i] {
			v, err := fn.input.Eval(current)
			if err != nil {
				return err
			}
			if !fn.ignoreNulls || v != nil {
				f.seen[i]++
				if f.seen[i] == fn.target {
					f.value[i] = v
					f.found[i] = true
				}
			}
		}
		if f.found[i] {
			f.buf[f.ordinal+i] = f.value[i]
		} else {
			f.buf[f.ordinal+i] = nil
		}
	}
	return nil
}
