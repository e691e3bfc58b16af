package window

import (
	"context"

	"github.com/gtk96/windmill/internal/parallel"
	"github.com/gtk96/windmill/internal/rows"
)

// streamResult carries one drained stream's rows or the first error hit while
// draining it.
type streamResult struct {
	rows []rows.Row
	err  error
}

// EvaluateStreams evaluates the operator over several pre-partitioned row
// sources concurrently and drains each to completion. Every source must hold
// whole partitions; a partition split across sources would be evaluated
// twice. Results come back aligned with the input sources.
func (op *Operator) EvaluateStreams(ctx context.Context, srcs []RowSource) ([][]rows.Row, error) {
	pool := parallel.NewWorkerPool(op.cfg.MaxPartitionParallelism)
	defer pool.Close()

	results := parallel.ProcessIndexed(pool, srcs, func(taskIndex int, src RowSource) streamResult {
		it, err := op.Evaluate(ctx, taskIndex, src)
		if err != nil {
			return streamResult{err: err}
		}
		var out []rows.Row
		for it.HasNext() {
			r, err := it.Next()
			if err != nil {
				return streamResult{err: err}
			}
			out = append(out, r)
		}
		if err := it.Err(); err != nil {
			return streamResult{err: err}
		}
		return streamResult{rows: out}
	})

	out := make([][]rows.Row, len(results))
	for i, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		out[i] = res.rows
	}
	return out, nil
}
