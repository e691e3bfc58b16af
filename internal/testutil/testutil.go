// Package testutil provides common testing utilities to reduce code
// duplication across test files:
// - standard test schemas and sorted row fixtures
// - an in-memory RowSource over a row slice
// - iterator draining helpers
package testutil

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/gtk96/windmill/internal/rows"
)

const (
	// defaultRowCount is the default number of rows in test fixtures.
	defaultRowCount = 6
)

// SliceSource serves rows from a slice, in order.
type SliceSource struct {
	rows []rows.Row
	next int
}

// NewSliceSource creates a source over the given rows.
func NewSliceSource(rs ...rows.Row) *SliceSource {
	return &SliceSource{rows: rs}
}

// Next implements the row source contract, returning io.EOF at the end.
func (s *SliceSource) Next() (rows.Row, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.next]
	s.next++
	return r, nil
}

// ErrSource fails after serving a prefix of rows.
type ErrSource struct {
	Rows []rows.Row
	Err  error
	next int
}

// Next serves the prefix then returns the configured error.
func (s *ErrSource) Next() (rows.Row, error) {
	if s.next >= len(s.Rows) {
		return nil, s.Err
	}
	r := s.Rows[s.next]
	s.next++
	return r, nil
}

// TestFixtureOption configures test fixture creation.
type TestFixtureOption func(*testFixtureConfig)

type testFixtureConfig struct {
	includeNulls bool
	rowCount     int
}

// WithNulls includes null salary values in test data.
func WithNulls() TestFixtureOption {
	return func(cfg *testFixtureConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestFixtureOption {
	return func(cfg *testFixtureConfig) {
		cfg.rowCount = count
	}
}

// EmployeeSchema returns the standard test schema:
// department (string), name (string), salary (int64).
func EmployeeSchema() rows.Schema {
	return rows.NewSchema(
		rows.Field{Name: "department", Type: arrow.BinaryTypes.String},
		rows.Field{Name: "name", Type: arrow.BinaryTypes.String},
		rows.Field{Name: "salary", Type: arrow.PrimitiveTypes.Int64},
	)
}

// EmployeeRows creates standard test rows sorted by department, then salary.
// Departments cycle Engineering/Marketing/Sales; with WithNulls every fourth
// salary is null.
func EmployeeRows(opts ...TestFixtureOption) []rows.Row {
	cfg := &testFixtureConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}

	departments := []string{"Engineering", "Marketing", "Sales"}
	perDept := (cfg.rowCount + len(departments) - 1) / len(departments)

	out := make([]rows.Row, 0, cfg.rowCount)
	i := 0
	for _, dept := range departments {
		for j := 0; j < perDept && i < cfg.rowCount; j++ {
			var salary any = int64(50000 + 10000*j)
			if cfg.includeNulls && i%4 == 3 {
				salary = nil
			}
			out = append(out, rows.Row{dept, testNames[i%len(testNames)], salary})
			i++
		}
	}
	return out
}

var testNames = []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Heidi"}

// Int64Rows builds single-column int64 rows; nil entries become nulls.
func Int64Rows(vals ...any) []rows.Row {
	out := make([]rows.Row, len(vals))
	for i, v := range vals {
		out[i] = rows.Row{v}
	}
	return out
}

// Drain consumes an iterator-style source until io.EOF.
func Drain(src interface{ Next() (rows.Row, error) }) ([]rows.Row, error) {
	var out []rows.Row
	for {
		r, err := src.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, r)
	}
}

// Column extracts one column of a row slice, preserving nulls.
func Column(rs []rows.Row, idx int) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = r[idx]
	}
	return out
}
