// Package expr provides the window-expression model: column and literal
// expressions, aggregate functions, window functions, and window
// specifications with frame bounds.
package expr

import (
	"fmt"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprAggregation
	ExprWindow
	ExprWindowFunction
)

// Expr represents an expression that can be compiled against a schema.
// String returns a canonical rendering; two expressions with equal canonical
// renderings are treated as equivalent during frame classification.
type Expr interface {
	Type() ExprType
	String() string
}

// ColumnExpr represents a column reference
type ColumnExpr struct {
	name string
}

// Col creates a column reference expression
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

func (c *ColumnExpr) Type() ExprType {
	return ExprColumn
}

func (c *ColumnExpr) String() string {
	return fmt.Sprintf("col(%s)", c.name)
}

func (c *ColumnExpr) Name() string {
	return c.name
}

// LiteralExpr represents a literal value
type LiteralExpr struct {
	value any
}

// Lit creates a literal expression
func Lit(value any) *LiteralExpr {
	return &LiteralExpr{value: value}
}

func (l *LiteralExpr) Type() ExprType {
	return ExprLiteral
}

func (l *LiteralExpr) String() string {
	return fmt.Sprintf("lit(%v)", l.value)
}

func (l *LiteralExpr) Value() any {
	return l.value
}

// IntValue returns the literal as an int64 offset, if it is integral.
func (l *LiteralExpr) IntValue() (int64, bool) {
	switch v := l.value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
