package expr

import (
	"fmt"
)

// AggregationType represents the type of aggregation function
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMean
	AggMin
	AggMax
	AggForeign
)

// Aggregation function name constants
const (
	AggNameSum     = "sum"
	AggNameCount   = "count"
	AggNameMean    = "mean"
	AggNameMin     = "min"
	AggNameMax     = "max"
	AggNameForeign = "foreign"
)

// AggregationExpr represents an aggregation function over a column expression.
// Foreign aggregations stand for user-defined aggregate functions evaluated
// outside the native aggregate processor.
type AggregationExpr struct {
	aggType AggregationType
	column  Expr
	name    string
}

func (a *AggregationExpr) Type() ExprType {
	return ExprAggregation
}

func (a *AggregationExpr) String() string {
	return fmt.Sprintf("%s(%s)", a.FuncName(), a.column.String())
}

// FuncName returns the aggregation function name.
func (a *AggregationExpr) FuncName() string {
	switch a.aggType {
	case AggSum:
		return AggNameSum
	case AggCount:
		return AggNameCount
	case AggMean:
		return AggNameMean
	case AggMin:
		return AggNameMin
	case AggMax:
		return AggNameMax
	case AggForeign:
		return a.name
	default:
		return "unknown"
	}
}

// AggType returns the aggregation function kind.
func (a *AggregationExpr) AggType() AggregationType {
	return a.aggType
}

// Column returns the aggregated input expression.
func (a *AggregationExpr) Column() Expr {
	return a.column
}

// Foreign reports whether this is a user-defined aggregate evaluated outside
// the native aggregate processor.
func (a *AggregationExpr) Foreign() bool {
	return a.aggType == AggForeign
}

// Aggregation constructor functions

// Sum creates a SUM aggregation
func Sum(column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggSum, column: column}
}

// Count creates a COUNT aggregation
func Count(column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggCount, column: column}
}

// Mean creates an AVG aggregation
func Mean(column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggMean, column: column}
}

// Min creates a MIN aggregation
func Min(column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggMin, column: column}
}

// Max creates a MAX aggregation
func Max(column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggMax, column: column}
}

// ForeignAggregation creates a user-defined aggregation marker. The native
// aggregate processor is never constructed for groups containing one.
func ForeignAggregation(name string, column Expr) *AggregationExpr {
	return &AggregationExpr{aggType: AggForeign, column: column, name: name}
}
