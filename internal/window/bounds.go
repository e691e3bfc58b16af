// Package window implements streaming evaluation of SQL window functions over
// pre-partitioned, pre-sorted row streams: frame classification, frame
// boundary comparators, per-frame evaluators, and the partition-at-a-time
// driver that merges frame outputs with input rows.
package window

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/expr"
	"github.com/gtk96/windmill/internal/rows"
)

// boundOrdering decides whether a candidate row lies within a frame boundary
// anchored at the current row. compare returns a negative value when the
// candidate is before the bound, zero on it, and a positive value beyond it.
type boundOrdering interface {
	compare(candidate rows.Row, candidateIdx int, current rows.Row, currentIdx int) (int, error)
}

// orderKey is one compiled ORDER BY key.
type orderKey struct {
	index      int
	dt         arrow.DataType
	descending bool
}

// rowBoundOrdering is pure index arithmetic; no row content is inspected.
type rowBoundOrdering struct {
	offset int
}

func (o rowBoundOrdering) compare(_ rows.Row, candidateIdx int, _ rows.Row, currentIdx int) (int, error) {
	return candidateIdx - (currentIdx + o.offset), nil
}

// identityRangeOrdering handles RANGE ... CURRENT ROW bounds by comparing the
// candidate's order key against the current row's directly.
type identityRangeOrdering struct {
	cmp *rows.RowComparator
}

func (o identityRangeOrdering) compare(candidate rows.Row, _ int, current rows.Row, _ int) (int, error) {
	return o.cmp.Compare(candidate, current)
}

// rangeBoundOrdering compares the candidate's order value against the current
// row's order value adjusted by the bound offset.
type rangeBoundOrdering struct {
	current    *rows.ColumnProjection
	bound      func(rows.Row) (any, error)
	dt         arrow.DataType
	descending bool
}

func (o rangeBoundOrdering) compare(candidate rows.Row, _ int, current rows.Row, _ int) (int, error) {
	cv, err := o.current.Eval(candidate)
	if err != nil {
		return 0, err
	}
	bv, err := o.bound(current)
	if err != nil {
		return 0, err
	}
	cmp, err := rows.CompareValues(o.dt, cv, bv)
	if err != nil {
		return 0, err
	}
	if o.descending {
		return -cmp, nil
	}
	return cmp, nil
}

// newBoundOrdering builds the comparator for one bounded frame edge.
//
// ROW frames accept CURRENT ROW or an integer literal offset. RANGE frames
// accept CURRENT ROW over any number of ORDER BY keys; a value offset requires
// exactly one key, whose type together with the offset type selects the
// boundary arithmetic. A descending key negates the offset so the comparison
// always behaves as if ascending.
func newBoundOrdering(
	frameType expr.FrameType,
	boundary *expr.FrameBoundary,
	keys []orderKey,
	schema rows.Schema,
	orderNames []string,
	loc *time.Location,
) (boundOrdering, error) {
	sign := 1
	switch boundary.Kind() {
	case expr.BoundaryCurrentRow:
		if frameType == expr.FrameTypeRows {
			return rowBoundOrdering{offset: 0}, nil
		}
		cmp := rows.NewRowComparator(sortKeys(keys))
		return identityRangeOrdering{cmp: cmp}, nil
	case expr.BoundaryPreceding:
		sign = -1
	case expr.BoundaryFollowing:
		sign = 1
	default:
		return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
	}

	if frameType == expr.FrameTypeRows {
		lit, ok := boundary.Offset().(*expr.LiteralExpr)
		if !ok {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		n, ok := lit.IntValue()
		if !ok {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		return rowBoundOrdering{offset: sign * int(n)}, nil
	}

	// RANGE frame with a value offset.
	if len(keys) != 1 {
		return nil, errors.ErrMultiKeyRangeOffset
	}
	key := keys[0]
	if key.descending {
		sign = -sign
	}
	orderProj, err := rows.NewColumnProjection(schema, orderNames[0])
	if err != nil {
		return nil, err
	}
	bound, err := newBoundProjection(orderProj, key.dt, boundary, sign, loc)
	if err != nil {
		return nil, err
	}
	return rangeBoundOrdering{
		current:    orderProj,
		bound:      bound,
		dt:         key.dt,
		descending: key.descending,
	}, nil
}

func sortKeys(keys []orderKey) []rows.SortKey {
	out := make([]rows.SortKey, len(keys))
	for i, k := range keys {
		out[i] = rows.SortKey{Index: k.index, Type: k.dt, Descending: k.descending}
	}
	return out
}

// newBoundProjection compiles "order value of the current row adjusted by the
// bound offset" with type-specific arithmetic.
func newBoundProjection(
	orderProj *rows.ColumnProjection,
	dt arrow.DataType,
	boundary *expr.FrameBoundary,
	sign int,
	loc *time.Location,
) (func(rows.Row) (any, error), error) {
	if loc == nil {
		loc = time.UTC
	}

	switch off := boundary.Offset().(type) {
	case *expr.LiteralExpr:
		return newLiteralBoundProjection(orderProj, dt, off, sign, boundary)
	case *expr.IntervalExpr:
		months := int64(sign) * off.MonthCount()
		dur := time.Duration(sign) * off.Duration()
		return newTemporalBoundProjection(orderProj, dt, months, 0, dur, loc, boundary)
	case *expr.CalendarIntervalExpr:
		months := int64(sign) * off.MonthCount()
		days := int64(sign) * off.DayCount()
		dur := time.Duration(sign) * off.Duration()
		return newTemporalBoundProjection(orderProj, dt, months, days, dur, loc, boundary)
	default:
		return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
	}
}

func newLiteralBoundProjection(
	orderProj *rows.ColumnProjection,
	dt arrow.DataType,
	off *expr.LiteralExpr,
	sign int,
	boundary *expr.FrameBoundary,
) (func(rows.Row) (any, error), error) {
	switch dt.ID() {
	case arrow.DATE32:
		// date + integer day offset
		n, ok := off.IntValue()
		if !ok {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		delta := arrow.Date32(int32(sign) * int32(n))
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			return v.(arrow.Date32) + delta, nil
		}, nil

	case arrow.INT64:
		n, ok := off.IntValue()
		if !ok {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		delta := int64(sign) * n
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			return v.(int64) + delta, nil
		}, nil

	case arrow.FLOAT64:
		var delta float64
		switch x := off.Value().(type) {
		case float64:
			delta = x
		case int, int32, int64:
			n, _ := off.IntValue()
			delta = float64(n)
		default:
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		delta *= float64(sign)
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			return v.(float64) + delta, nil
		}, nil

	case arrow.DECIMAL128:
		// decimal addition, deliberately without overflow checking
		dec, ok := dt.(*arrow.Decimal128Type)
		if !ok {
			return nil, errors.NewUnsupportedTypeError("BoundOrdering", dt.String())
		}
		delta, err := decimalOffset(off, dec.Scale)
		if err != nil {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		if sign < 0 {
			delta = decimal128.Num{}.Sub(delta)
		}
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			return v.(decimal128.Num).Add(delta), nil
		}, nil

	default:
		return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
	}
}

func newTemporalBoundProjection(
	orderProj *rows.ColumnProjection,
	dt arrow.DataType,
	months, days int64,
	dur time.Duration,
	loc *time.Location,
	boundary *expr.FrameBoundary,
) (func(rows.Row) (any, error), error) {
	switch t := dt.(type) {
	case *arrow.Date32Type:
		// date + year-month interval; day-time components are not defined
		// for dates
		if days != 0 || dur != 0 {
			return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
		}
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			adjusted := v.(arrow.Date32).ToTime().AddDate(0, int(months), 0)
			return arrow.Date32FromTime(adjusted), nil
		}, nil

	case *arrow.TimestampType:
		unit := t.Unit
		return func(r rows.Row) (any, error) {
			v, err := orderProj.Eval(r)
			if err != nil || v == nil {
				return nil, err
			}
			ts := v.(arrow.Timestamp).ToTime(unit).In(loc)
			ts = ts.AddDate(0, int(months), int(days)).Add(dur)
			adjusted, err := arrow.TimestampFromTime(ts, unit)
			if err != nil {
				return nil, err
			}
			return adjusted, nil
		}, nil

	default:
		return nil, errors.NewUnsupportedBoundError("BoundOrdering", boundary.String())
	}
}

// decimalOffset converts an integer or decimal literal into a decimal128
// value at the order key's scale.
func decimalOffset(off *expr.LiteralExpr, scale int32) (decimal128.Num, error) {
	if d, ok := off.Value().(decimal128.Num); ok {
		return d, nil
	}
	n, ok := off.IntValue()
	if !ok {
		return decimal128.Num{}, errors.NewUnsupportedTypeError("BoundOrdering", "decimal offset")
	}
	scaled := decimal128.FromI64(n)
	for i := int32(0); i < scale; i++ {
		scaled = scaled.Mul(decimal128.FromI64(10))
	}
	return scaled, nil
}
