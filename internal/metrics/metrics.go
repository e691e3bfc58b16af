// Package metrics provides the operator's observability hooks: tally-backed
// execution counters (spill accounting above all) and zap logger construction.
package metrics

import (
	"github.com/uber-go/tally"
)

// ExecMetrics accumulates operator execution counters. The spill counter is
// incremented exactly once per partition boundary crossing with that
// partition's spill footprint.
type ExecMetrics struct {
	spillBytes tally.Counter
	partitions tally.Counter
	rowsOut    tally.Counter
}

// New creates execution metrics under the given scope.
func New(scope tally.Scope) *ExecMetrics {
	return &ExecMetrics{
		spillBytes: scope.Counter("window_spill_bytes"),
		partitions: scope.Counter("window_partitions"),
		rowsOut:    scope.Counter("window_rows_out"),
	}
}

// Nop creates execution metrics that record nothing.
func Nop() *ExecMetrics {
	return New(tally.NoopScope)
}

// AddSpillBytes records one partition's spill footprint.
func (m *ExecMetrics) AddSpillBytes(n int64) {
	m.spillBytes.Inc(n)
}

// IncPartitions records one completed partition.
func (m *ExecMetrics) IncPartitions() {
	m.partitions.Inc(1)
}

// AddRowsOut records emitted result rows.
func (m *ExecMetrics) AddRowsOut(n int64) {
	m.rowsOut.Inc(n)
}
