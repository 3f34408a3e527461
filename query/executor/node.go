package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

/*
All operators in the execution plan implement the ExecutionPlan interface. A
plan is a tree of operators, each exposing one or more independent partitions.
A partition is read by calling Execute to obtain a RecordIterator, and then
calling Next on the iterator until an io.EOF is received.

Plans are immutable once constructed and are shared by pointer, so one subtree
may have several parents. Iterators are created fresh on every call to Execute.

The String() method is used to recursively generate a human-readable
representation of the plan. We use it for explain output and tests.
*/

////////////////////////////////////////////////////////////////////////////////

// RecordIterator is a pull-based cursor over the record batches of one
// partition. Next returns io.EOF when the partition is exhausted. Records
// returned from Next are owned by the caller, which must release them.
type RecordIterator interface {
	Next(ctx context.Context) (arrow.Record, error)
	Close() error
}

// ExecutionPlan is the interface for all operators in the execution plan.
type ExecutionPlan interface {
	Schema() *arrow.Schema
	OutputPartitioning() Partitioning
	Execute(ctx context.Context, partition int) (RecordIterator, error)
	String() string
}

// PartitioningKind is the strategy an operator uses to split its output.
type PartitioningKind int

const (
	// Unknown partitioning makes no claim about how rows are distributed.
	Unknown PartitioningKind = iota
)

// String returns a string representation of the partitioning kind.
func (k PartitioningKind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("partitioning(%d)", int(k))
	}
}

// Partitioning describes the output partitions of an operator.
type Partitioning struct {
	Kind  PartitioningKind
	Count int
}

// UnknownPartitioning returns a partitioning of n partitions with no known
// distribution of rows.
func UnknownPartitioning(n int) Partitioning {
	return Partitioning{Kind: Unknown, Count: n}
}

// PartitionCount returns the number of partitions.
func (p Partitioning) PartitionCount() int {
	return p.Count
}

// String returns a string representation of the partitioning.
func (p Partitioning) String() string {
	return fmt.Sprintf("%s(%d)", p.Kind, p.Count)
}

// SharedIterator wraps a RecordIterator with a mutex. Any number of goroutines
// may hold a reference to it, but only one call to Next or Close executes at a
// time.
type SharedIterator struct {
	it  RecordIterator
	mtx *sync.Mutex
}

// NewSharedIterator wraps an iterator for use across goroutines.
func NewSharedIterator(it RecordIterator) *SharedIterator {
	return &SharedIterator{it: it, mtx: &sync.Mutex{}}
}

// Next returns the next record from the underlying iterator.
func (s *SharedIterator) Next(ctx context.Context) (arrow.Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.it.Next(ctx)
}

// Close closes the underlying iterator.
func (s *SharedIterator) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.it.Close()
}
