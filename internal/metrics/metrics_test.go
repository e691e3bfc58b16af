package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/gtk96/windmill/internal/metrics"
)

func TestExecMetricsCounters(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	m := metrics.New(scope)

	m.AddSpillBytes(128)
	m.AddSpillBytes(64)
	m.IncPartitions()
	m.AddRowsOut(10)

	counters := scope.Snapshot().Counters()
	require.Contains(t, counters, "window_spill_bytes+")
	assert.Equal(t, int64(192), counters["window_spill_bytes+"].Value())
	assert.Equal(t, int64(1), counters["window_partitions+"].Value())
	assert.Equal(t, int64(10), counters["window_rows_out+"].Value())
}

func TestNopRecordsNothing(t *testing.T) {
	m := metrics.Nop()
	m.AddSpillBytes(1)
	m.IncPartitions()
	m.AddRowsOut(1)
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, metrics.NewLogger(false))
	assert.NotNil(t, metrics.NewLogger(true))
}
