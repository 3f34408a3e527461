package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
)

/*
MemoryIterator replays a fixed list of records, and MemoryExec is a source
operator over in-memory partitions. Limiters use the iterator to republish
their collected output, and tests use MemoryExec to simulate scans without a
storage dependency.
*/

////////////////////////////////////////////////////////////////////////////////

// MemoryIterator replays records in order, then returns io.EOF.
type MemoryIterator struct {
	schema  *arrow.Schema
	records []arrow.Record
}

// NewMemoryIterator constructs a new memory iterator. The iterator takes
// ownership of the supplied records.
func NewMemoryIterator(schema *arrow.Schema, records []arrow.Record) *MemoryIterator {
	return &MemoryIterator{schema: schema, records: records}
}

// Schema returns the schema of the replayed records.
func (m *MemoryIterator) Schema() *arrow.Schema {
	return m.schema
}

// Next returns the next record.
func (m *MemoryIterator) Next(_ context.Context) (arrow.Record, error) {
	if len(m.records) == 0 {
		return nil, io.EOF
	}
	rec := m.records[0]
	m.records[0] = nil
	m.records = m.records[1:]
	return rec, nil
}

// Close releases any records that were not read.
func (m *MemoryIterator) Close() error {
	releaseAll(m.records)
	m.records = nil
	return nil
}

// MemoryExec is a source operator over in-memory partitions.
type MemoryExec struct {
	schema     *arrow.Schema
	partitions [][]arrow.Record
}

// NewMemoryExec constructs a new memory source with one partition per slice
// of records. The operator retains a reference to every record.
func NewMemoryExec(schema *arrow.Schema, partitions ...[]arrow.Record) *MemoryExec {
	for _, partition := range partitions {
		for _, rec := range partition {
			rec.Retain()
		}
	}
	return &MemoryExec{schema: schema, partitions: partitions}
}

// Schema returns the schema of the source.
func (m *MemoryExec) Schema() *arrow.Schema {
	return m.schema
}

// OutputPartitioning returns one partition per slice of records.
func (m *MemoryExec) OutputPartitioning() Partitioning {
	return UnknownPartitioning(len(m.partitions))
}

// Execute returns an iterator over the records of a partition.
func (m *MemoryExec) Execute(_ context.Context, partition int) (RecordIterator, error) {
	if err := checkPartition("memory", partition, len(m.partitions)); err != nil {
		return nil, err
	}
	records := make([]arrow.Record, len(m.partitions[partition]))
	for i, rec := range m.partitions[partition] {
		rec.Retain()
		records[i] = rec
	}
	return NewSharedIterator(NewMemoryIterator(m.schema, records)), nil
}

// Release drops the source's references to its records.
func (m *MemoryExec) Release() {
	for _, partition := range m.partitions {
		releaseAll(partition)
	}
	m.partitions = nil
}

// String returns a string representation of the node.
func (m *MemoryExec) String() string {
	return fmt.Sprintf("[memory %d]", len(m.partitions))
}
