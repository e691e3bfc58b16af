package expr

import (
	"fmt"
	"time"
)

// Date/Time Interval Types

// IntervalType represents different types of time intervals
type IntervalType int

const (
	IntervalDays IntervalType = iota
	IntervalHours
	IntervalMinutes
	IntervalMonths
	IntervalYears
)

// IntervalExpr represents a time interval value and type
type IntervalExpr struct {
	value        int64
	intervalType IntervalType
}

func (i *IntervalExpr) Type() ExprType {
	return ExprLiteral // Intervals are treated as literals
}

func (i *IntervalExpr) String() string {
	var unit string
	switch i.intervalType {
	case IntervalDays:
		unit = "days"
	case IntervalHours:
		unit = "hours"
	case IntervalMinutes:
		unit = "minutes"
	case IntervalMonths:
		unit = "months"
	case IntervalYears:
		unit = "years"
	}
	return fmt.Sprintf("interval(%d %s)", i.value, unit)
}

func (i *IntervalExpr) Value() int64 {
	return i.value
}

func (i *IntervalExpr) IntervalType() IntervalType {
	return i.intervalType
}

// Months returns the year-month component of the interval in months.
func (i *IntervalExpr) MonthCount() int64 {
	switch i.intervalType {
	case IntervalMonths:
		return i.value
	case IntervalYears:
		return i.value * 12
	default:
		return 0
	}
}

// Duration returns the day-time component of the interval.
func (i *IntervalExpr) Duration() time.Duration {
	switch i.intervalType {
	case IntervalDays:
		return time.Duration(i.value) * 24 * time.Hour
	case IntervalHours:
		return time.Duration(i.value) * time.Hour
	case IntervalMinutes:
		return time.Duration(i.value) * time.Minute
	default:
		return 0
	}
}

// YearMonth reports whether the interval has only a year-month component.
func (i *IntervalExpr) YearMonth() bool {
	return i.intervalType == IntervalMonths || i.intervalType == IntervalYears
}

// Interval constructor functions

// Days creates an interval representing days
func Days(value int64) *IntervalExpr {
	return &IntervalExpr{value: value, intervalType: IntervalDays}
}

// Hours creates an interval representing hours
func Hours(value int64) *IntervalExpr {
	return &IntervalExpr{value: value, intervalType: IntervalHours}
}

// Minutes creates an interval representing minutes
func Minutes(value int64) *IntervalExpr {
	return &IntervalExpr{value: value, intervalType: IntervalMinutes}
}

// Months creates an interval representing months
func Months(value int64) *IntervalExpr {
	return &IntervalExpr{value: value, intervalType: IntervalMonths}
}

// Years creates an interval representing years
func Years(value int64) *IntervalExpr {
	return &IntervalExpr{value: value, intervalType: IntervalYears}
}

// CalendarIntervalExpr represents a combined month/day/time interval, the
// shape produced by SQL INTERVAL literals with mixed units.
type CalendarIntervalExpr struct {
	months   int64
	days     int64
	duration time.Duration
}

// CalendarInterval creates a combined interval literal.
func CalendarInterval(months, days int64, duration time.Duration) *CalendarIntervalExpr {
	return &CalendarIntervalExpr{months: months, days: days, duration: duration}
}

func (c *CalendarIntervalExpr) Type() ExprType {
	return ExprLiteral
}

func (c *CalendarIntervalExpr) String() string {
	return fmt.Sprintf("interval(%d months %d days %s)", c.months, c.days, c.duration)
}

func (c *CalendarIntervalExpr) MonthCount() int64 {
	return c.months
}

func (c *CalendarIntervalExpr) DayCount() int64 {
	return c.days
}

func (c *CalendarIntervalExpr) Duration() time.Duration {
	return c.duration
}
