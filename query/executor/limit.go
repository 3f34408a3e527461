package executor

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/log"
)

/*
Limiting happens in two phases. LocalLimitExec caps each input partition
independently, so no partition materializes more than limit rows and no
partition is read past its cap. GlobalLimitExec runs a local limit over its
input, collapses the result to one partition with a merge, and then applies
the exact cap to the merged batches. The local phase can emit up to
partitions*limit rows in total; only the final pass makes the count exact.

The local phase is a performance heuristic rather than a correctness
requirement, and can be disabled with WithLocalPrefilter(false). Output is the
same either way.
*/

////////////////////////////////////////////////////////////////////////////////

// LocalLimitExec applies a limit to each partition of its input.
type LocalLimitExec struct {
	input ExecutionPlan
	limit int
}

// NewLocalLimitExec constructs a new local limit. It panics if limit is
// negative.
func NewLocalLimitExec(input ExecutionPlan, limit int) *LocalLimitExec {
	if limit < 0 {
		panic(fmt.Sprintf("local limit must be non-negative, got %d", limit))
	}
	return &LocalLimitExec{input: input, limit: limit}
}

// Schema returns the schema of the input.
func (n *LocalLimitExec) Schema() *arrow.Schema {
	return n.input.Schema()
}

// OutputPartitioning returns the partitioning of the input.
func (n *LocalLimitExec) OutputPartitioning() Partitioning {
	return n.input.OutputPartitioning()
}

// Execute collects at most limit rows from a partition of the input and
// returns them as a new iterator.
func (n *LocalLimitExec) Execute(ctx context.Context, partition int) (RecordIterator, error) {
	it, err := n.input.Execute(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to execute input partition %d: %w", partition, err)
	}
	defer it.Close()
	records, err := CollectWithLimit(ctx, it, n.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to limit partition %d: %w", partition, err)
	}
	log.Debugw(ctx, "local limit",
		"partition", partition,
		"limit", n.limit,
		"rows", countRows(records),
	)
	return NewSharedIterator(NewMemoryIterator(n.Schema(), records)), nil
}

// String returns a string representation of the node.
func (n *LocalLimitExec) String() string {
	return fmt.Sprintf("[locallimit %d %s]", n.limit, n.input.String())
}

// LimitOption is a functional option for the global limit.
type LimitOption func(*limitOptions)

type limitOptions struct {
	prefilter bool
}

// WithLocalPrefilter controls whether the input partitions are limited before
// they are merged. It is enabled by default.
func WithLocalPrefilter(enabled bool) LimitOption {
	return func(opts *limitOptions) {
		opts.prefilter = enabled
	}
}

// GlobalLimitExec applies a limit across all partitions of its input, and
// exposes the result as a single partition.
type GlobalLimitExec struct {
	input ExecutionPlan
	merge *MergeExec
	limit int
}

// NewGlobalLimitExec constructs a new global limit. Concurrency bounds the
// number of input partitions the merge drains at once. It panics if limit is
// negative.
func NewGlobalLimitExec(input ExecutionPlan, limit int, concurrency int, opts ...LimitOption) *GlobalLimitExec {
	if limit < 0 {
		panic(fmt.Sprintf("global limit must be non-negative, got %d", limit))
	}
	options := limitOptions{prefilter: true}
	for _, opt := range opts {
		opt(&options)
	}
	merged := input
	if options.prefilter {
		merged = NewLocalLimitExec(input, limit)
	}
	merge := NewMergeExec(merged, concurrency)
	if count := merge.OutputPartitioning().PartitionCount(); count != 1 {
		panic(fmt.Sprintf("merge must produce a single partition, got %d", count))
	}
	return &GlobalLimitExec{
		input: input,
		merge: merge,
		limit: limit,
	}
}

// Schema returns the schema of the input.
func (n *GlobalLimitExec) Schema() *arrow.Schema {
	return n.input.Schema()
}

// OutputPartitioning always reports a single partition.
func (n *GlobalLimitExec) OutputPartitioning() Partitioning {
	return UnknownPartitioning(1)
}

// Execute runs the limit and returns an iterator over at most limit rows.
// The operator has exactly one partition; requesting any other is a planner
// bug and panics.
func (n *GlobalLimitExec) Execute(ctx context.Context, partition int) (RecordIterator, error) {
	if partition != 0 {
		panic(fmt.Sprintf("global limit has a single partition, cannot execute partition %d", partition))
	}
	it, err := n.merge.Execute(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to execute merge: %w", err)
	}
	defer it.Close()
	batches, err := Collect(ctx, it)
	if err != nil {
		return nil, fmt.Errorf("failed to collect merged batches: %w", err)
	}
	merged := countRows(batches)

	// Batches past the cap are left in the replay iterator and released on
	// close.
	replay := NewMemoryIterator(n.Schema(), batches)
	defer replay.Close()
	records, err := CollectWithLimit(ctx, replay, n.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to apply limit: %w", err)
	}
	util.SetContextValue(ctx, "rows_limited", float64(countRows(records)))
	log.Debugw(ctx, "global limit",
		"limit", n.limit,
		"merged_rows", merged,
		"rows", countRows(records),
	)
	return NewSharedIterator(NewMemoryIterator(n.Schema(), records)), nil
}

// String returns a string representation of the node, including the merge
// and any local limit it runs.
func (n *GlobalLimitExec) String() string {
	return fmt.Sprintf("[limit %d %s]", n.limit, n.merge.String())
}
