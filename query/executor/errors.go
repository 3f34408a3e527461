package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrPartitionOutOfRange is returned when a partition index outside of an
	// operator's output partitioning is executed.
	ErrPartitionOutOfRange = errors.New("partition out of range")

	// ErrMalformedBatch is returned when a record's columns disagree with its
	// row count.
	ErrMalformedBatch = errors.New("malformed batch")

	// ErrNegativeLimit is returned when a truncation is requested with a
	// negative row count.
	ErrNegativeLimit = errors.New("negative limit")

	// ErrTableNotFound is returned when a scanned table has no partitions.
	ErrTableNotFound = errors.New("table not found")
)

// PartitionError reports a partition index that an operator does not expose.
type PartitionError struct {
	Operator  string
	Partition int
	Count     int
}

// NewPartitionError constructs a new partition error.
func NewPartitionError(operator string, partition int, count int) PartitionError {
	return PartitionError{
		Operator:  operator,
		Partition: partition,
		Count:     count,
	}
}

func (e PartitionError) Error() string {
	return fmt.Sprintf("%s has %d partitions, cannot execute partition %d",
		e.Operator, e.Count, e.Partition)
}

// Is reports whether the target is ErrPartitionOutOfRange or another
// PartitionError.
func (e PartitionError) Is(target error) bool {
	if target == ErrPartitionOutOfRange {
		return true
	}
	_, ok := target.(PartitionError)
	return ok
}

// checkPartition returns a PartitionError if partition is not a valid index
// for count partitions.
func checkPartition(operator string, partition int, count int) error {
	if partition < 0 || partition >= count {
		return NewPartitionError(operator, partition, count)
	}
	return nil
}
