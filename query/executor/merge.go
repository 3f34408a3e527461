package executor

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/log"
	"golang.org/x/sync/errgroup"
)

/*
MergeExec collapses every partition of its input into a single output
partition. Input partitions are executed and drained concurrently by a bounded
group of workers. The merged partition replays the batches grouped by input
partition, in ascending partition index, with each partition's internal order
preserved. This makes the output order deterministic for a given input
regardless of worker scheduling.

Statistics recorded while draining the input land in a child "merge" execution
context.
*/

////////////////////////////////////////////////////////////////////////////////

// MergeExec represents the merge operator.
type MergeExec struct {
	input       ExecutionPlan
	concurrency int
}

// NewMergeExec returns a new merge operator. Concurrency bounds the number of
// input partitions drained at once; values below one are treated as one.
func NewMergeExec(input ExecutionPlan, concurrency int) *MergeExec {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MergeExec{input: input, concurrency: concurrency}
}

// Schema returns the schema of the input.
func (n *MergeExec) Schema() *arrow.Schema {
	return n.input.Schema()
}

// OutputPartitioning always reports a single partition.
func (n *MergeExec) OutputPartitioning() Partitioning {
	return UnknownPartitioning(1)
}

// Execute drains every input partition and returns an iterator over the
// merged result.
func (n *MergeExec) Execute(ctx context.Context, partition int) (RecordIterator, error) {
	if err := checkPartition("merge", partition, 1); err != nil {
		return nil, err
	}
	ctx, _ = util.WithChildContext(ctx, "merge")
	count := n.input.OutputPartitioning().PartitionCount()
	results := make([][]arrow.Record, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i := range count {
		g.Go(func() error {
			it, err := n.input.Execute(gctx, i)
			if err != nil {
				return fmt.Errorf("failed to execute partition %d: %w", i, err)
			}
			defer it.Close()
			records, err := Collect(gctx, it)
			if err != nil {
				return fmt.Errorf("failed to drain partition %d: %w", i, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, records := range results {
			releaseAll(records)
		}
		return nil, fmt.Errorf("failed to merge partitions: %w", err)
	}
	merged := make([]arrow.Record, 0, count)
	for _, records := range results {
		merged = append(merged, records...)
	}
	util.SetContextValue(ctx, "partitions", float64(count))
	util.SetContextValue(ctx, "rows_merged", float64(countRows(merged)))
	log.Debugw(ctx, "merged partitions",
		"partitions", count,
		"batches", len(merged),
		"rows", countRows(merged),
	)
	return NewSharedIterator(NewMemoryIterator(n.Schema(), merged)), nil
}

// String returns a string representation of the node.
func (n *MergeExec) String() string {
	return fmt.Sprintf("[merge %d %s]", n.concurrency, n.input.String())
}
