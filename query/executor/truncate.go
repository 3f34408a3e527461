package executor

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

/*
Batch truncation produces a new record containing only the first n rows of an
existing record. Every column is sliced to the same length, so row alignment
across columns is preserved. Records are immutable, so slices share buffers
with the original.
*/

////////////////////////////////////////////////////////////////////////////////

// TruncateBatch returns a record holding the first n rows of rec. If n is at
// least the number of rows in rec, the result holds all of rec's rows. The
// returned record is a new reference and must be released by the caller.
func TruncateBatch(rec arrow.Record, n int) (arrow.Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("failed to truncate batch to %d rows: %w", n, ErrNegativeLimit)
	}
	rows := rec.NumRows()
	for i, col := range rec.Columns() {
		if int64(col.Len()) != rows {
			return nil, fmt.Errorf("%w: column %d has %d values, expected %d",
				ErrMalformedBatch, i, col.Len(), rows)
		}
	}
	if int64(n) >= rows {
		rec.Retain()
		return rec, nil
	}
	columns := make([]arrow.Array, rec.NumCols())
	for i, col := range rec.Columns() {
		columns[i] = array.NewSlice(col, 0, int64(n))
	}
	truncated := array.NewRecord(rec.Schema(), columns, int64(n))
	for _, col := range columns {
		col.Release()
	}
	return truncated, nil
}
