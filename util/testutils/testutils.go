package testutils

import (
	"fmt"
	"net"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

/*
General purpose test utilitites.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open port that can be used for testing.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Flatten concatenates slices of the same type.
func Flatten[T any](slices ...[]T) []T {
	result := []T{}
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// Schema returns the schema used by test records: an int64 id, a nullable
// string name, and a float64 score.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// NewRecord builds a record of the test schema with one row per id. The name
// of every id divisible by seven is null.
func NewRecord(mem memory.Allocator, schema *arrow.Schema, ids ...int64) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	idb := b.Field(0).(*array.Int64Builder)
	nameb := b.Field(1).(*array.StringBuilder)
	scoreb := b.Field(2).(*array.Float64Builder)
	for _, id := range ids {
		idb.Append(id)
		if id%7 == 0 {
			nameb.AppendNull()
		} else {
			nameb.Append(fmt.Sprintf("row-%d", id))
		}
		scoreb.Append(float64(id) / 2)
	}
	return b.NewRecord()
}

// Partitions builds partitions of test records. Each inner slice lists the
// batch sizes of one partition; ids are assigned sequentially across all
// partitions starting at zero.
func Partitions(mem memory.Allocator, schema *arrow.Schema, sizes ...[]int) [][]arrow.Record {
	partitions := make([][]arrow.Record, len(sizes))
	next := int64(0)
	for i, batches := range sizes {
		partitions[i] = []arrow.Record{}
		for _, size := range batches {
			ids := make([]int64, size)
			for j := range ids {
				ids[j] = next
				next++
			}
			partitions[i] = append(partitions[i], NewRecord(mem, schema, ids...))
		}
	}
	return partitions
}

// Release releases every record in every partition.
func Release(partitions ...[]arrow.Record) {
	for _, records := range partitions {
		for _, rec := range records {
			rec.Release()
		}
	}
}

// IDs returns the values of the first column of records, which must be int64.
func IDs(records []arrow.Record) []int64 {
	ids := []int64{}
	for _, rec := range records {
		col := rec.Column(0).(*array.Int64)
		for i := 0; i < col.Len(); i++ {
			ids = append(ids, col.Value(i))
		}
	}
	return ids
}

// BatchSizes returns the row count of each record.
func BatchSizes(records []arrow.Record) []int {
	sizes := make([]int, len(records))
	for i, rec := range records {
		sizes[i] = int(rec.NumRows())
	}
	return sizes
}

// CSV renders rows of the test schema as CSV text with a header line, for ids
// in [start, end).
func CSV(start, end int64) string {
	sb := &strings.Builder{}
	sb.WriteString("id,name,score\n")
	for id := start; id < end; id++ {
		name := fmt.Sprintf("row-%d", id)
		if id%7 == 0 {
			name = ""
		}
		fmt.Fprintf(sb, "%d,%s,%g\n", id, name, float64(id)/2)
	}
	return sb.String()
}
