package expr

import (
	"fmt"
	"strings"
)

// WindowSpec represents a window specification for window functions
type WindowSpec struct {
	partitionBy []string
	orderBy     []OrderByExpr
	frame       *WindowFrame
}

// OrderByExpr represents a column ordering specification
type OrderByExpr struct {
	column    string
	ascending bool
}

// Column returns the ordered column name.
func (o OrderByExpr) Column() string {
	return o.column
}

// Ascending reports the sort direction.
func (o OrderByExpr) Ascending() bool {
	return o.ascending
}

// WindowFrame represents the frame specification for window functions
type WindowFrame struct {
	frameType FrameType
	start     *FrameBoundary
	end       *FrameBoundary
}

// FrameType represents the type of window frame
type FrameType int

const (
	FrameTypeRows FrameType = iota
	FrameTypeRange
)

func (t FrameType) String() string {
	if t == FrameTypeRange {
		return "RANGE"
	}
	return "ROWS"
}

// BoundaryType represents the type of frame boundary
type BoundaryType int

const (
	BoundaryUnboundedPreceding BoundaryType = iota
	BoundaryPreceding
	BoundaryCurrentRow
	BoundaryFollowing
	BoundaryUnboundedFollowing
)

// FrameBoundary represents a frame boundary. Preceding and following
// boundaries carry an offset expression: an integer literal for ROWS frames,
// a value or interval literal for RANGE frames.
type FrameBoundary struct {
	boundaryType BoundaryType
	offset       Expr
}

// Kind returns the boundary type.
func (b *FrameBoundary) Kind() BoundaryType {
	return b.boundaryType
}

// Offset returns the boundary offset expression, nil for unbounded and
// current-row boundaries.
func (b *FrameBoundary) Offset() Expr {
	return b.offset
}

// Unbounded reports whether the boundary is unbounded in either direction.
func (b *FrameBoundary) Unbounded() bool {
	return b.boundaryType == BoundaryUnboundedPreceding || b.boundaryType == BoundaryUnboundedFollowing
}

// Window construction functions

// NewWindow creates a new window specification
func NewWindow() *WindowSpec {
	return &WindowSpec{}
}

// PartitionBy sets the partition columns for the window
func (w *WindowSpec) PartitionBy(columns ...string) *WindowSpec {
	w.partitionBy = columns
	return w
}

// OrderBy adds an ordering specification to the window
func (w *WindowSpec) OrderBy(column string, ascending bool) *WindowSpec {
	w.orderBy = append(w.orderBy, OrderByExpr{column: column, ascending: ascending})
	return w
}

// Rows sets a ROWS frame for the window
func (w *WindowSpec) Rows(frame *WindowFrame) *WindowSpec {
	frame.frameType = FrameTypeRows
	w.frame = frame
	return w
}

// Range sets a RANGE frame for the window
func (w *WindowSpec) Range(frame *WindowFrame) *WindowSpec {
	frame.frameType = FrameTypeRange
	w.frame = frame
	return w
}

// Partitions returns the partition column names.
func (w *WindowSpec) Partitions() []string {
	return w.partitionBy
}

// Order returns the ordering specifications.
func (w *WindowSpec) Order() []OrderByExpr {
	return w.orderBy
}

// Frame returns the explicit frame, nil when the window uses the default.
func (w *WindowSpec) Frame() *WindowFrame {
	return w.frame
}

// String returns the string representation of the window spec
func (w *WindowSpec) String() string {
	var parts []string

	if len(w.partitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(w.partitionBy, ", "))
	}

	if len(w.orderBy) > 0 {
		orderClauses := make([]string, 0, len(w.orderBy))
		for _, order := range w.orderBy {
			direction := "ASC"
			if !order.ascending {
				direction = "DESC"
			}
			orderClauses = append(orderClauses, order.column+" "+direction)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderClauses, ", "))
	}

	if w.frame != nil {
		parts = append(parts, w.frame.String())
	}

	return "OVER (" + strings.Join(parts, " ") + ")"
}

// Frame construction functions

// Between creates a window frame between two boundaries
func Between(start, end *FrameBoundary) *WindowFrame {
	return &WindowFrame{
		start: start,
		end:   end,
	}
}

// UnboundedPreceding creates an unbounded preceding boundary
func UnboundedPreceding() *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryUnboundedPreceding}
}

// Preceding creates a preceding boundary with a row-count offset
func Preceding(offset int) *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryPreceding, offset: Lit(int64(offset))}
}

// PrecedingBy creates a preceding boundary with a value or interval offset
func PrecedingBy(offset Expr) *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryPreceding, offset: offset}
}

// CurrentRow creates a current row boundary
func CurrentRow() *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryCurrentRow}
}

// Following creates a following boundary with a row-count offset
func Following(offset int) *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryFollowing, offset: Lit(int64(offset))}
}

// FollowingBy creates a following boundary with a value or interval offset
func FollowingBy(offset Expr) *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryFollowing, offset: offset}
}

// UnboundedFollowing creates an unbounded following boundary
func UnboundedFollowing() *FrameBoundary {
	return &FrameBoundary{boundaryType: BoundaryUnboundedFollowing}
}

// FrameType returns the frame type.
func (f *WindowFrame) FrameType() FrameType {
	return f.frameType
}

// Start returns the lower boundary.
func (f *WindowFrame) Start() *FrameBoundary {
	return f.start
}

// End returns the upper boundary.
func (f *WindowFrame) End() *FrameBoundary {
	return f.end
}

// String returns the string representation of the frame
func (f *WindowFrame) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s",
		f.frameType.String(), f.start.String(), f.end.String())
}

// String returns the string representation of the boundary
func (b *FrameBoundary) String() string {
	switch b.boundaryType {
	case BoundaryUnboundedPreceding:
		return "UNBOUNDED PRECEDING"
	case BoundaryPreceding:
		return fmt.Sprintf("%s PRECEDING", b.offset.String())
	case BoundaryCurrentRow:
		return "CURRENT ROW"
	case BoundaryFollowing:
		return fmt.Sprintf("%s FOLLOWING", b.offset.String())
	case BoundaryUnboundedFollowing:
		return "UNBOUNDED FOLLOWING"
	default:
		return "UNKNOWN"
	}
}

// WindowExpr represents a window function expression bound to a window spec.
// The alias names the output column in the result schema.
type WindowExpr struct {
	function Expr
	window   *WindowSpec
	alias    string
}

// Type returns the expression type
func (w *WindowExpr) Type() ExprType {
	return ExprWindow
}

// String returns the string representation
func (w *WindowExpr) String() string {
	return fmt.Sprintf("%s %s", w.function.String(), w.window.String())
}

// As sets the output column name.
func (w *WindowExpr) As(alias string) *WindowExpr {
	w.alias = alias
	return w
}

// Alias returns the output column name, falling back to the canonical
// rendering when no alias was set.
func (w *WindowExpr) Alias() string {
	if w.alias != "" {
		return w.alias
	}
	return w.String()
}

// Function returns the inner window function.
func (w *WindowExpr) Function() Expr {
	return w.function
}

// Window returns the window specification.
func (w *WindowExpr) Window() *WindowSpec {
	return w.window
}

// Window function name constants
const (
	WinNameRowNumber = "row_number"
	WinNameRank      = "rank"
	WinNameDenseRank = "dense_rank"
	WinNameLag       = "lag"
	WinNameLead      = "lead"
	WinNameNthValue  = "nth_value"
)

// WindowFunctionExpr represents a window-specific function (ROW_NUMBER, LAG, etc.)
type WindowFunctionExpr struct {
	funcName    string
	args        []Expr
	ignoreNulls bool
}

// Type returns the expression type
func (w *WindowFunctionExpr) Type() ExprType {
	return ExprWindowFunction
}

// String returns the string representation
func (w *WindowFunctionExpr) String() string {
	suffix := ""
	if w.ignoreNulls {
		suffix = " ignore nulls"
	}
	if len(w.args) == 0 {
		return fmt.Sprintf("%s()%s", w.funcName, suffix)
	}

	argStrings := make([]string, 0, len(w.args))
	for _, arg := range w.args {
		argStrings = append(argStrings, arg.String())
	}
	return fmt.Sprintf("%s(%s)%s", w.funcName, strings.Join(argStrings, ", "), suffix)
}

// FuncName returns the window function name.
func (w *WindowFunctionExpr) FuncName() string {
	return w.funcName
}

// Args returns the function arguments.
func (w *WindowFunctionExpr) Args() []Expr {
	return w.args
}

// IgnoresNulls reports whether the function skips null input values.
func (w *WindowFunctionExpr) IgnoresNulls() bool {
	return w.ignoreNulls
}

// IgnoreNulls marks the function to skip null input values. Only offset
// functions honor the flag.
func (w *WindowFunctionExpr) IgnoreNulls() *WindowFunctionExpr {
	w.ignoreNulls = true
	return w
}

// Over creates a window expression with the specified window
func (w *WindowFunctionExpr) Over(window *WindowSpec) *WindowExpr {
	return &WindowExpr{
		function: w,
		window:   window,
	}
}

// Over creates a window expression with the specified window for aggregation functions
func (a *AggregationExpr) Over(window *WindowSpec) *WindowExpr {
	return &WindowExpr{
		function: a,
		window:   window,
	}
}

// Window function constructors

// RowNumber creates a ROW_NUMBER() window function
func RowNumber() *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: WinNameRowNumber}
}

// Rank creates a RANK() window function
func Rank() *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: WinNameRank}
}

// DenseRank creates a DENSE_RANK() window function
func DenseRank() *WindowFunctionExpr {
	return &WindowFunctionExpr{funcName: WinNameDenseRank}
}

// Lag creates a LAG() window function
func Lag(expr Expr, offset int) *WindowFunctionExpr {
	return &WindowFunctionExpr{
		funcName: WinNameLag,
		args:     []Expr{expr, Lit(int64(offset))},
	}
}

// Lead creates a LEAD() window function
func Lead(expr Expr, offset int) *WindowFunctionExpr {
	return &WindowFunctionExpr{
		funcName: WinNameLead,
		args:     []Expr{expr, Lit(int64(offset))},
	}
}

// NthValue creates an NTH_VALUE() window function; n is 1-based.
func NthValue(expr Expr, n int) *WindowFunctionExpr {
	return &WindowFunctionExpr{
		funcName: WinNameNthValue,
		args:     []Expr{expr, Lit(int64(n))},
	}
}

// FirstValue creates a FIRST_VALUE() window function, expressed as NTH_VALUE(expr, 1).
func FirstValue(expr Expr) *WindowFunctionExpr {
	return NthValue(expr, 1)
}
