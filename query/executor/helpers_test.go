package executor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/util/testutils"
)

var errUpstream = errors.New("upstream failure")

// countingExec wraps a plan and counts the batches pulled from each
// partition.
type countingExec struct {
	executor.ExecutionPlan
	pulls []int
	mtx   *sync.Mutex
}

func newCountingExec(input executor.ExecutionPlan) *countingExec {
	return &countingExec{
		ExecutionPlan: input,
		pulls:         make([]int, input.OutputPartitioning().PartitionCount()),
		mtx:           &sync.Mutex{},
	}
}

func (c *countingExec) Execute(ctx context.Context, partition int) (executor.RecordIterator, error) {
	it, err := c.ExecutionPlan.Execute(ctx, partition)
	if err != nil {
		return nil, err
	}
	return &countingIterator{it: it, exec: c, partition: partition}, nil
}

func (c *countingExec) Pulls(partition int) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.pulls[partition]
}

type countingIterator struct {
	it        executor.RecordIterator
	exec      *countingExec
	partition int
}

func (c *countingIterator) Next(ctx context.Context) (arrow.Record, error) {
	rec, err := c.it.Next(ctx)
	if err == nil {
		c.exec.mtx.Lock()
		c.exec.pulls[c.partition]++
		c.exec.mtx.Unlock()
	}
	return rec, err
}

func (c *countingIterator) Close() error {
	return c.it.Close()
}

// failingExec wraps a plan and fails the given partition after it has
// produced n batches.
type failingExec struct {
	executor.ExecutionPlan
	partition int
	after     int
}

func (f *failingExec) Execute(ctx context.Context, partition int) (executor.RecordIterator, error) {
	it, err := f.ExecutionPlan.Execute(ctx, partition)
	if err != nil {
		return nil, err
	}
	if partition != f.partition {
		return it, nil
	}
	return &failingIterator{it: it, remaining: f.after}, nil
}

type failingIterator struct {
	it        executor.RecordIterator
	remaining int
}

func (f *failingIterator) Next(ctx context.Context) (arrow.Record, error) {
	if f.remaining == 0 {
		return nil, fmt.Errorf("failed to read: %w", errUpstream)
	}
	f.remaining--
	return f.it.Next(ctx)
}

func (f *failingIterator) Close() error {
	return f.it.Close()
}

// newAllocator returns a checked allocator that asserts every allocation has
// been released when the test completes.
func newAllocator(t *testing.T) *memory.CheckedAllocator {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}

// newMemoryExec builds an in-memory source with the given batch sizes per
// partition. The source is released when the test completes.
func newMemoryExec(t *testing.T, mem memory.Allocator, sizes ...[]int) *executor.MemoryExec {
	t.Helper()
	schema := testutils.Schema()
	partitions := testutils.Partitions(mem, schema, sizes...)
	exec := executor.NewMemoryExec(schema, partitions...)
	testutils.Release(partitions...)
	t.Cleanup(exec.Release)
	return exec
}

// execute runs one partition of a plan to completion and returns its records.
// The records are released when the test completes.
func execute(t *testing.T, plan executor.ExecutionPlan, partition int) []arrow.Record {
	t.Helper()
	ctx := context.Background()
	it, err := plan.Execute(ctx, partition)
	require.NoError(t, err)
	defer func() { require.NoError(t, it.Close()) }()
	records, err := executor.Collect(ctx, it)
	require.NoError(t, err)
	t.Cleanup(func() { testutils.Release(records) })
	return records
}

func totalRows(records []arrow.Record) int {
	n := 0
	for _, rec := range records {
		n += int(rec.NumRows())
	}
	return n
}
