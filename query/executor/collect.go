package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/log"
)

/*
Collection drains an iterator into memory. Bounded collection stops as soon as
a row cap is reached: the final batch is truncated to fit, and the iterator is
never pulled again, so rows past the cap in the underlying source are never
read.

Callers own the returned records. On error, anything accumulated so far is
released and only the error is returned.
*/

////////////////////////////////////////////////////////////////////////////////

// Collect reads every record from it, in order.
func Collect(ctx context.Context, it RecordIterator) ([]arrow.Record, error) {
	records := []arrow.Record{}
	for {
		rec, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			releaseAll(records)
			return nil, fmt.Errorf("failed to read next batch: %w", err)
		}
		records = append(records, rec)
	}
}

// CollectWithLimit reads records from it until limit rows have been
// accumulated or the iterator is exhausted. A batch that would exceed the
// limit is truncated to the remaining capacity.
func CollectWithLimit(ctx context.Context, it RecordIterator, limit int) ([]arrow.Record, error) {
	if limit < 0 {
		return nil, fmt.Errorf("failed to collect %d rows: %w", limit, ErrNegativeLimit)
	}
	records := []arrow.Record{}
	count := 0
	for count < limit {
		rec, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			releaseAll(records)
			return nil, fmt.Errorf("failed to read next batch: %w", err)
		}
		util.IncContextValue(ctx, "batches_read", 1)
		capacity := limit - count
		rows := int(rec.NumRows())
		if rows <= capacity {
			count += rows
			records = append(records, rec)
			continue
		}
		truncated, err := TruncateBatch(rec, capacity)
		rec.Release()
		if err != nil {
			releaseAll(records)
			return nil, err
		}
		log.Debugw(ctx, "truncated batch", "rows", rows, "kept", capacity)
		count += int(truncated.NumRows())
		records = append(records, truncated)
	}
	util.IncContextValue(ctx, "rows_collected", float64(count))
	return records, nil
}

// countRows returns the total number of rows across records.
func countRows(records []arrow.Record) int64 {
	var n int64
	for _, rec := range records {
		n += rec.NumRows()
	}
	return n
}

func releaseAll(records []arrow.Record) {
	for _, rec := range records {
		rec.Release()
	}
}
