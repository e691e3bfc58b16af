package parallel_test

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtk96/windmill/internal/parallel"
)

func TestNewWorkerPool(t *testing.T) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	assert.Equal(t, runtime.NumCPU(), pool.NumWorkers())

	pool2 := parallel.NewWorkerPool(4)
	defer pool2.Close()
	assert.Equal(t, 4, pool2.NumWorkers())

	pool3 := parallel.NewWorkerPool(-1)
	defer pool3.Close()
	assert.Equal(t, runtime.NumCPU(), pool3.NumWorkers())
}

func TestProcessBasic(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	input := []int{1, 2, 3, 4, 5}
	results := parallel.Process(pool, input, func(x int) int {
		return x * x
	})

	// Results might not be in order due to parallel processing
	assert.Len(t, results, 5)
	resultMap := make(map[int]bool)
	for _, r := range results {
		resultMap[r] = true
	}
	assert.Equal(t, map[int]bool{1: true, 4: true, 9: true, 16: true, 25: true}, resultMap)
}

func TestProcessEmpty(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	results := parallel.Process(pool, []int{}, func(x int) int {
		return x * 2
	})
	assert.Nil(t, results)
}

func TestProcessIndexedPreservesOrder(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	input := []string{"a", "b", "c", "d"}
	results := parallel.ProcessIndexed(pool, input, func(index int, value string) string {
		return value + string(rune('0'+index))
	})

	assert.Equal(t, []string{"a0", "b1", "c2", "d3"}, results)
}

func TestProcessConcurrency(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	var concurrentCount int64
	var maxConcurrent int64

	input := make([]int, 20)
	for i := range input {
		input[i] = i
	}

	results := parallel.Process(pool, input, func(x int) int {
		current := atomic.AddInt64(&concurrentCount, 1)
		for {
			maxVal := atomic.LoadInt64(&maxConcurrent)
			if current <= maxVal || atomic.CompareAndSwapInt64(&maxConcurrent, maxVal, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&concurrentCount, -1)
		return x * 2
	})

	require.Len(t, results, 20)
	assert.Greater(t, maxConcurrent, int64(1), "Expected some concurrent execution")
}

func TestWorkerPoolClose(t *testing.T) {
	pool := parallel.NewWorkerPool(2)

	results := parallel.Process(pool, []int{1, 2, 3}, func(x int) int {
		return x
	})
	assert.Len(t, results, 3)

	pool.Close()
	assert.NotPanics(t, func() {
		pool.Close() // safe to call twice
	})
}
