package rows

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"golang.org/x/exp/constraints"

	"github.com/gtk96/windmill/internal/errors"
)

// CompareValues compares two values of the given Arrow type.
// NULL sorts before any non-null value.
func CompareValues(dt arrow.DataType, v1, v2 any) (int, error) {
	if cmp, decided := compareNullValues(v1, v2); decided {
		return cmp, nil
	}

	switch dt.ID() {
	case arrow.INT64:
		return compareOrdered(v1.(int64), v2.(int64)), nil
	case arrow.FLOAT64:
		return compareOrdered(v1.(float64), v2.(float64)), nil
	case arrow.STRING:
		return compareOrdered(v1.(string), v2.(string)), nil
	case arrow.BOOL:
		return compareBooleanValues(v1.(bool), v2.(bool)), nil
	case arrow.DATE32:
		return compareOrdered(v1.(arrow.Date32), v2.(arrow.Date32)), nil
	case arrow.TIMESTAMP:
		return compareOrdered(v1.(arrow.Timestamp), v2.(arrow.Timestamp)), nil
	case arrow.DECIMAL128:
		return compareDecimalValues(v1.(decimal128.Num), v2.(decimal128.Num)), nil
	default:
		return 0, errors.NewUnsupportedTypeError("CompareValues", dt.String())
	}
}

// EqualValues reports value equality under the given Arrow type, treating two
// NULLs as equal. Partition-boundary detection relies on this semantic.
func EqualValues(dt arrow.DataType, v1, v2 any) (bool, error) {
	cmp, err := CompareValues(dt, v1, v2)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

// compareNullValues handles null value comparison logic. The second return
// value reports whether null handling already decided the comparison.
func compareNullValues(v1, v2 any) (int, bool) {
	isNull1, isNull2 := v1 == nil, v2 == nil
	switch {
	case isNull1 && isNull2:
		return 0, true
	case isNull1:
		return -1, true
	case isNull2:
		return 1, true
	default:
		return 0, false
	}
}

func compareOrdered[T constraints.Ordered](v1, v2 T) int {
	switch {
	case v1 < v2:
		return -1
	case v1 > v2:
		return 1
	default:
		return 0
	}
}

func compareBooleanValues(v1, v2 bool) int {
	switch {
	case !v1 && v2:
		return -1
	case v1 && !v2:
		return 1
	default:
		return 0
	}
}

func compareDecimalValues(v1, v2 decimal128.Num) int {
	switch {
	case v1.Less(v2):
		return -1
	case v2.Less(v1):
		return 1
	default:
		return 0
	}
}

// SortKey identifies one ORDER BY key over the input schema.
type SortKey struct {
	Index      int
	Type       arrow.DataType
	Descending bool
}

// RowComparator compares two rows on a sequence of sort keys.
type RowComparator struct {
	keys []SortKey
}

// NewRowComparator creates a comparator over the given sort keys.
func NewRowComparator(keys []SortKey) *RowComparator {
	return &RowComparator{keys: keys}
}

// Compare returns a negative, zero, or positive value following the usual
// three-way comparison convention, honoring per-key sort direction.
func (c *RowComparator) Compare(a, b Row) (int, error) {
	for _, key := range c.keys {
		cmp, err := CompareValues(key.Type, a[key.Index], b[key.Index])
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			if key.Descending {
				return -cmp, nil
			}
			return cmp, nil
		}
	}
	return 0, nil
}
