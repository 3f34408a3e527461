package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wkalt/colq/query/plan"
	"github.com/wkalt/colq/storage"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/log"
)

/*
The executor module implements a partitioned, pull-based query executor with a
limited set of operators:
  * scan: decodes record batches from the CSV partitions of a table
  * merge: drains every partition of its input into a single partition
  * locallimit: caps each partition of its input independently
  * limit: caps the total number of rows across all partitions

Queries arrive as a tree of plan nodes, which are compiled to a tree of
execution plans. The root is executed for its single partition, and records are
pulled from the resulting iterator until an io.EOF occurs.
*/

////////////////////////////////////////////////////////////////////////////////

const defaultConcurrency = 4

// ScanFactory constructs a scan over a table.
type ScanFactory func(ctx context.Context, table string) (ExecutionPlan, error)

// NewCsvScanFactory returns a scan factory that reads CSV tables from store.
func NewCsvScanFactory(store storage.Provider, opts ...CsvOption) ScanFactory {
	return func(ctx context.Context, table string) (ExecutionPlan, error) {
		return NewCsvExec(ctx, store, table, opts...)
	}
}

// RunOption is a functional option for query execution.
type RunOption func(*runOptions)

type runOptions struct {
	concurrency  int
	limitOptions []LimitOption
}

// WithDefaultConcurrency sets the concurrency used when the query does not
// specify one.
func WithDefaultConcurrency(n int) RunOption {
	return func(opts *runOptions) {
		opts.concurrency = n
	}
}

// WithLimitOptions passes options through to every limit operator in the
// query.
func WithLimitOptions(opts ...LimitOption) RunOption {
	return func(o *runOptions) {
		o.limitOptions = append(o.limitOptions, opts...)
	}
}

// Run compiles a query to an execution plan, and executes it to completion.
// Results are written to w. If the query is an explain query, the execution
// plan is written instead.
func Run(
	ctx context.Context,
	w ResultWriter,
	query *plan.Query,
	scanFactory ScanFactory,
	opts ...RunOption,
) error {
	options := runOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&options)
	}
	concurrency := options.concurrency
	if query.Concurrency > 0 {
		concurrency = query.Concurrency
	}
	root, err := CompilePlan(ctx, query.Root, scanFactory, concurrency, options.limitOptions...)
	if err != nil {
		return err
	}
	if count := root.OutputPartitioning().PartitionCount(); count != 1 {
		root = NewMergeExec(root, concurrency)
	}
	util.SetContextData(ctx, "plan", root.String())
	log.Debugw(ctx, "compiled query", "plan", root.String(), "concurrency", concurrency)
	if query.Explain {
		if err := w.WriteExplain(root.String()); err != nil {
			return fmt.Errorf("failed to write explain: %w", err)
		}
		return w.Flush()
	}
	if err := w.WriteSchema(root.Schema()); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	it, err := root.Execute(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer it.Close()
	var rows int64
	for {
		rec, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read next batch: %w", err)
		}
		rows += rec.NumRows()
		err = w.WriteRecord(rec)
		rec.Release()
		if err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}
	util.SetContextValue(ctx, "rows_returned", float64(rows))
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return nil
}

// CompilePlan compiles a "plan tree" -- a tree of plan nodes -- to a tree of
// execution plans.
func CompilePlan(
	ctx context.Context,
	node *plan.Node,
	scanFactory ScanFactory,
	concurrency int,
	opts ...LimitOption,
) (ExecutionPlan, error) {
	switch node.Type {
	case plan.Limit:
		return compileLimit(ctx, node, scanFactory, concurrency, opts...)
	case plan.Scan:
		return compileScan(ctx, node, scanFactory)
	default:
		return nil, fmt.Errorf("unrecognized node type %s", node.Type)
	}
}

func compileLimit(
	ctx context.Context,
	node *plan.Node,
	sf ScanFactory,
	concurrency int,
	opts ...LimitOption,
) (ExecutionPlan, error) {
	if len(node.Children) != 1 {
		return nil, fmt.Errorf("expected one child of limit, got %d", len(node.Children))
	}
	if node.Limit == nil {
		return nil, errors.New("limit node missing limit")
	}
	child, err := CompilePlan(ctx, node.Children[0], sf, concurrency, opts...)
	if err != nil {
		return nil, err
	}
	if *node.Limit < 0 {
		return nil, fmt.Errorf("failed to compile limit: %w", ErrNegativeLimit)
	}
	return NewGlobalLimitExec(child, *node.Limit, concurrency, opts...), nil
}

func compileScan(ctx context.Context, node *plan.Node, sf ScanFactory) (ExecutionPlan, error) {
	if len(node.Args) != 1 {
		return nil, fmt.Errorf("expected one argument to scan, got %d", len(node.Args))
	}
	table, ok := node.Args[0].(string)
	if !ok {
		return nil, fmt.Errorf("expected string table, got %T", node.Args[0])
	}
	scan, err := sf(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return scan, nil
}
