package agg

import (
	"github.com/gtk96/windmill/internal/rows"
)

// Ranking window functions are evaluated as running accumulators over a
// ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW frame: after updating
// through the current row, Eval yields that row's rank.

// rowNumberFunc numbers rows 1..n in frame order.
type rowNumberFunc struct {
	count int64
}

// NewRowNumber creates a ROW_NUMBER accumulator.
func NewRowNumber() Function {
	return &rowNumberFunc{}
}

func (f *rowNumberFunc) Reset() {
	f.count = 0
}

func (f *rowNumberFunc) Update(rows.Row) error {
	f.count++
	return nil
}

func (f *rowNumberFunc) Eval() (any, error) {
	return f.count, nil
}

// rankFunc assigns equal ranks to order-key peers, with gaps.
type rankFunc struct {
	cmp   *rows.RowComparator
	dense bool

	count   int64
	rank    int64
	lastRow rows.Row
}

// NewRank creates a RANK accumulator; peers are detected with the order-key
// comparator.
func NewRank(cmp *rows.RowComparator) Function {
	return &rankFunc{cmp: cmp}
}

// NewDenseRank creates a DENSE_RANK accumulator (no gaps after peer groups).
func NewDenseRank(cmp *rows.RowComparator) Function {
	return &rankFunc{cmp: cmp, dense: true}
}

func (f *rankFunc) Reset() {
	f.count, f.rank, f.lastRow = 0, 0, nil
}

func (f *rankFunc) Update(r rows.Row) error {
	f.count++
	if f.lastRow != nil {
		cmp, err := f.cmp.Compare(r, f.lastRow)
		if err != nil {
			return err
		}
		if cmp == 0 {
			return nil
		}
	}
	if f.dense {
		f.rank++
	} else {
		f.rank = f.count
	}
	f.lastRow = r.Copy()
	return nil
}

func (f *rankFunc) Eval() (any, error) {
	return f.rank, nil
}
