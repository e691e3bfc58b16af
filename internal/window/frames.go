package window

import (
	"errors"
	"io"

	"github.com/gtk96/windmill/internal/agg"
	"github.com/gtk96/windmill/internal/rows"
	"github.com/gtk96/windmill/internal/rowstore"
)

// frameEvaluator is the contract every concrete frame satisfies: prepare is
// called once per partition with the fully buffered rows, then write is
// called once per row in strictly increasing rowIdx order, filling this
// group's slots of the shared result buffer.
type frameEvaluator interface {
	prepare(part *rowstore.Buffer) error
	write(rowIdx int, current rows.Row) error
}

// peekIterator wraps a buffer iterator with one-row lookahead and the
// absolute index of that row.
type peekIterator struct {
	it      *rowstore.Iterator
	next    rows.Row
	nextIdx int
	hasNext bool
}

func newPeekIterator(part *rowstore.Buffer, start int) (*peekIterator, error) {
	it, err := part.NewIteratorAt(start)
	if err != nil {
		return nil, err
	}
	p := &peekIterator{it: it, nextIdx: start - 1}
	return p, p.advance()
}

func (p *peekIterator) advance() error {
	r, err := p.it.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			p.hasNext = false
			p.next = nil
			return nil
		}
		return err
	}
	p.next = r
	p.nextIdx++
	p.hasNext = true
	return nil
}

// writeNulls blanks the group's slots, used when no aggregate processor was
// constructed for the group (foreign user-defined aggregates present).
func writeNulls(buf rows.Row, ordinal, slots int) {
	for i := 0; i < slots; i++ {
		buf[ordinal+i] = nil
	}
}

// wholePartitionFrame computes the aggregate once over the entire partition
// and replays it for every row.
type wholePartitionFrame struct {
	proc    *agg.Processor
	buf     rows.Row
	ordinal int
	slots   int

	scratch rows.Row
}

func newWholePartitionFrame(proc *agg.Processor, buf rows.Row, ordinal, slots int) *wholePartitionFrame {
	return &wholePartitionFrame{proc: proc, buf: buf, ordinal: ordinal, slots: slots}
}

func (f *wholePartitionFrame) prepare(part *rowstore.Buffer) error {
	if f.proc == nil {
		return nil
	}
	f.proc.Reset()
	in, err := newPeekIterator(part, 0)
	if err != nil {
		return err
	}
	for in.hasNext {
		if err := f.proc.Update(in.next); err != nil {
			return err
		}
		if err := in.advance(); err != nil {
			return err
		}
	}
	f.scratch = make(rows.Row, f.ordinal+f.slots)
	return f.proc.Eval(f.scratch)
}

func (f *wholePartitionFrame) write(int, rows.Row) error {
	if f.proc == nil {
		writeNulls(f.buf, f.ordinal, f.slots)
		return nil
	}
	copy(f.buf[f.ordinal:f.ordinal+f.slots], f.scratch[f.ordinal:])
	return nil
}

// growingFrame evaluates [UNBOUNDED PRECEDING, upper]: rows only ever enter
// the frame, so the aggregate accumulates incrementally.
type growingFrame struct {
	proc    *agg.Processor
	upper   boundOrdering
	buf     rows.Row
	ordinal int
	slots   int

	in *peekIterator
}

func newGrowingFrame(proc *agg.Processor, upper boundOrdering, buf rows.Row, ordinal, slots int) *growingFrame {
	return &growingFrame{proc: proc, upper: upper, buf: buf, ordinal: ordinal, slots: slots}
}

func (f *growingFrame) prepare(part *rowstore.Buffer) error {
	if f.proc == nil {
		return nil
	}
	f.proc.Reset()
	var err error
	f.in, err = newPeekIterator(part, 0)
	return err
}

func (f *growingFrame) write(rowIdx int, current rows.Row) error {
	if f.proc == nil {
		writeNulls(f.buf, f.ordinal, f.slots)
		return nil
	}
	for f.in.hasNext {
		cmp, err := f.upper.compare(f.in.next, f.in.nextIdx, current, rowIdx)
		if err != nil {
			return err
		}
		if cmp > 0 {
			break
		}
		if err := f.proc.Update(f.in.next); err != nil {
			return err
		}
		if err := f.in.advance(); err != nil {
			return err
		}
	}
	return f.proc.Eval(f.buf)
}

// shrinkingFrame evaluates [lower, UNBOUNDED FOLLOWING]: rows only ever leave
// the frame. The aggregate has no retract operation, so the frame recomputes
// from the lower edge whenever it moves.
type shrinkingFrame struct {
	proc    *agg.Processor
	lower   boundOrdering
	buf     rows.Row
	ordinal int
	slots   int

	part    *rowstore.Buffer
	lo      *peekIterator
	valid   bool
	scratch rows.Row
}

func newShrinkingFrame(proc *agg.Processor, lower boundOrdering, buf rows.Row, ordinal, slots int) *shrinkingFrame {
	return &shrinkingFrame{proc: proc, lower: lower, buf: buf, ordinal: ordinal, slots: slots}
}

func (f *shrinkingFrame) prepare(part *rowstore.Buffer) error {
	if f.proc == nil {
		return nil
	}
	f.part = part
	f.valid = false
	f.scratch = make(rows.Row, f.ordinal+f.slots)
	var err error
	f.lo, err = newPeekIterator(part, 0)
	return err
}

func (f *shrinkingFrame) write(rowIdx int, current rows.Row) error {
	if f.proc == nil {
		writeNulls(f.buf, f.ordinal, f.slots)
		return nil
	}
	for f.lo.hasNext {
		cmp, err := f.lower.compare(f.lo.next, f.lo.nextIdx, current, rowIdx)
		if err != nil {
			return err
		}
		if cmp >= 0 {
			break
		}
		if err := f.lo.advance(); err != nil {
			return err
		}
		f.valid = false
	}

	if !f.valid {
		f.proc.Reset()
		start := f.lo.nextIdx
		if !f.lo.hasNext {
			start = f.part.Len()
		}
		in, err := newPeekIterator(f.part, start)
		if err != nil {
			return err
		}
		for in.hasNext {
			if err := f.proc.Update(in.next); err != nil {
				return err
			}
			if err := in.advance(); err != nil {
				return err
			}
		}
		if err := f.proc.Eval(f.scratch); err != nil {
			return err
		}
		f.valid = true
	}

	copy(f.buf[f.ordinal:f.ordinal+f.slots], f.scratch[f.ordinal:])
	return nil
}

// slidingFrame evaluates [lower, upper] with both edges moving. The rows
// currently inside the frame are held in an in-memory deque bounded by the
// frame width; the aggregate is recomputed whenever the frame changes.
type slidingFrame struct {
	proc    *agg.Processor
	lower   boundOrdering
	upper   boundOrdering
	buf     rows.Row
	ordinal int
	slots   int

	in       *peekIterator
	deque    []rows.Row
	frontIdx int
	valid    bool
	scratch  rows.Row
}

func newSlidingFrame(proc *agg.Processor, lower, upper boundOrdering, buf rows.Row, ordinal, slots int) *slidingFrame {
	return &slidingFrame{proc: proc, lower: lower, upper: upper, buf: buf, ordinal: ordinal, slots: slots}
}

func (f *slidingFrame) prepare(part *rowstore.Buffer) error {
	if f.proc == nil {
		return nil
	}
	f.deque = f.deque[:0]
	f.frontIdx = 0
	f.valid = false
	f.scratch = make(rows.Row, f.ordinal+f.slots)
	var err error
	f.in, err = newPeekIterator(part, 0)
	return err
}

func (f *slidingFrame) write(rowIdx int, current rows.Row) error {
	if f.proc == nil {
		writeNulls(f.buf, f.ordinal, f.slots)
		return nil
	}

	// Evict rows that fell below the lower bound.
	for len(f.deque) > 0 {
		cmp, err := f.lower.compare(f.deque[0], f.frontIdx, current, rowIdx)
		if err != nil {
			return err
		}
		if cmp >= 0 {
			break
		}
		f.deque = f.deque[1:]
		f.frontIdx++
		f.valid = false
	}

	// Admit rows up to the upper bound.
	for f.in.hasNext {
		cmp, err := f.upper.compare(f.in.next, f.in.nextIdx, current, rowIdx)
		if err != nil {
			return err
		}
		if cmp > 0 {
			break
		}
		// A row can enter below the lower bound when the frame is empty;
		// it still has to pass the lower test before joining the deque.
		lcmp, err := f.lower.compare(f.in.next, f.in.nextIdx, current, rowIdx)
		if err != nil {
			return err
		}
		if lcmp >= 0 {
			f.deque = append(f.deque, f.in.next)
		} else {
			f.frontIdx++
		}
		if err := f.in.advance(); err != nil {
			return err
		}
		f.valid = false
	}

	if !f.valid {
		f.proc.Reset()
		for _, r := range f.deque {
			if err := f.proc.Update(r); err != nil {
				return err
			}
		}
		if err := f.proc.Eval(f.scratch); err != nil {
			return err
		}
		f.valid = true
	}

	copy(f.buf[f.ordinal:f.ordinal+f.slots], f.scratch[f.ordinal:])
	return nil
}
