package executor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/util/testutils"
)

func TestMergeExec(t *testing.T) {
	cases := []struct {
		assertion string
		sizes     [][]int
		expected  []int
	}{
		{
			"single partition",
			[][]int{{1, 2, 3}},
			[]int{1, 2, 3},
		},
		{
			"two partitions",
			[][]int{{1, 2}, {3}},
			[]int{1, 2, 3},
		},
		{
			"empty partitions",
			[][]int{{}, {}, {}},
			[]int{},
		},
		{
			"one nonempty partition",
			[][]int{{}, {2, 2}, {}},
			[]int{2, 2},
		},
		{
			"no partitions",
			[][]int{},
			[]int{},
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			for _, concurrency := range []int{-1, 0, 1, 2, 8} {
				mem := newAllocator(t)
				source := newMemoryExec(t, mem, c.sizes...)
				merge := executor.NewMergeExec(source, concurrency)
				require.Equal(t, 1, merge.OutputPartitioning().PartitionCount())
				records := execute(t, merge, 0)
				require.Equal(t, c.expected, testutils.BatchSizes(records))

				total := 0
				for _, n := range testutils.Flatten(c.sizes...) {
					total += n
				}
				ids := testutils.IDs(records)
				require.Len(t, ids, total)
				for i, id := range ids {
					require.Equal(t, int64(i), id)
				}
			}
		})
	}

	t.Run("single output partition", func(t *testing.T) {
		ctx := context.Background()
		mem := newAllocator(t)
		merge := executor.NewMergeExec(newMemoryExec(t, mem, []int{1}, []int{1}), 2)
		_, err := merge.Execute(ctx, 1)
		require.ErrorIs(t, err, executor.ErrPartitionOutOfRange)
	})

	t.Run("propagates partition errors", func(t *testing.T) {
		ctx := context.Background()
		mem := newAllocator(t)
		source := &failingExec{
			ExecutionPlan: newMemoryExec(t, mem, []int{1, 1}, []int{1, 1}, []int{1, 1}),
			partition:     1,
			after:         1,
		}
		_, err := executor.NewMergeExec(source, 2).Execute(ctx, 0)
		require.ErrorIs(t, err, errUpstream)
	})

	t.Run("respects concurrency", func(t *testing.T) {
		mem := newAllocator(t)
		sizes := make([][]int, 16)
		for i := range sizes {
			sizes[i] = []int{1}
		}
		source := &gaugeExec{ExecutionPlan: newMemoryExec(t, mem, sizes...)}
		records := execute(t, executor.NewMergeExec(source, 3), 0)
		require.Len(t, records, 16)
		require.LessOrEqual(t, source.peak.Load(), int32(3))
	})

	t.Run("string", func(t *testing.T) {
		mem := newAllocator(t)
		merge := executor.NewMergeExec(newMemoryExec(t, mem, []int{1}), 2)
		require.Equal(t, "[merge 2 [memory 1]]", merge.String())
	})
}

// gaugeExec records the peak number of partitions open at once.
type gaugeExec struct {
	executor.ExecutionPlan
	open atomic.Int32
	peak atomic.Int32
	mtx  sync.Mutex
}

func (g *gaugeExec) Execute(ctx context.Context, partition int) (executor.RecordIterator, error) {
	it, err := g.ExecutionPlan.Execute(ctx, partition)
	if err != nil {
		return nil, err
	}
	n := g.open.Add(1)
	g.mtx.Lock()
	if n > g.peak.Load() {
		g.peak.Store(n)
	}
	g.mtx.Unlock()
	return &gaugeIterator{it: it, exec: g}, nil
}

type gaugeIterator struct {
	it   executor.RecordIterator
	exec *gaugeExec
}

func (g *gaugeIterator) Next(ctx context.Context) (arrow.Record, error) {
	return g.it.Next(ctx)
}

func (g *gaugeIterator) Close() error {
	g.exec.open.Add(-1)
	return g.it.Close()
}
