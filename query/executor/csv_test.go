package executor_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/storage"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/testutils"
)

// putPartitions writes n CSV partitions of rows rows each under table.
func putPartitions(t *testing.T, store storage.Provider, table string, n int, rows int64) {
	t.Helper()
	ctx := context.Background()
	for i := range int64(n) {
		id := fmt.Sprintf("%s/part-%d.csv", table, i)
		require.NoError(t, store.Put(ctx, id, []byte(testutils.CSV(i*rows, (i+1)*rows))))
	}
}

func TestCsvExec(t *testing.T) {
	ctx := context.Background()
	stores := []struct {
		assertion string
		store     storage.Provider
	}{
		{"memory store", storage.NewMemStore()},
		{"directory store", storage.NewDirectoryStore(t.TempDir())},
	}
	for _, s := range stores {
		t.Run(s.assertion, func(t *testing.T) {
			putPartitions(t, s.store, "aggregate", 4, 25)

			t.Run("global limit over partitioned csv", func(t *testing.T) {
				mem := newAllocator(t)
				scan, err := executor.NewCsvExec(ctx, s.store, "aggregate",
					executor.WithSchema(testutils.Schema()),
					executor.WithAllocator(mem),
				)
				require.NoError(t, err)
				require.Equal(t, 4, scan.OutputPartitioning().PartitionCount())

				limit := executor.NewGlobalLimitExec(scan, 7, 2)
				records := execute(t, limit, 0)
				require.Equal(t, 7, totalRows(records))
			})

			t.Run("scan reads every row", func(t *testing.T) {
				mem := newAllocator(t)
				scan, err := executor.NewCsvExec(ctx, s.store, "aggregate",
					executor.WithSchema(testutils.Schema()),
					executor.WithBatchSize(10),
					executor.WithAllocator(mem),
				)
				require.NoError(t, err)
				records := execute(t, scan, 2)
				require.Equal(t, []int{10, 10, 5}, testutils.BatchSizes(records))
				expected := make([]int64, 25)
				for i := range expected {
					expected[i] = int64(50 + i)
				}
				require.Equal(t, expected, testutils.IDs(records))

				names := records[0].Column(1).(*array.String)
				require.True(t, names.IsNull(6)) // id 56
				require.Equal(t, "row-50", names.Value(0))
			})

			t.Run("local limit stops decoding early", func(t *testing.T) {
				mem := newAllocator(t)
				scan, err := executor.NewCsvExec(ctx, s.store, "aggregate",
					executor.WithSchema(testutils.Schema()),
					executor.WithBatchSize(5),
					executor.WithAllocator(mem),
				)
				require.NoError(t, err)
				counted := newCountingExec(scan)
				records := execute(t, executor.NewLocalLimitExec(counted, 7), 1)
				require.Equal(t, []int{5, 2}, testutils.BatchSizes(records))
				require.Equal(t, 2, counted.Pulls(1))
			})

			t.Run("infers schema", func(t *testing.T) {
				require.NoError(t, s.store.Put(ctx, "inferred/part-0.csv", []byte(testutils.CSV(1, 10))))
				mem := newAllocator(t)
				scan, err := executor.NewCsvExec(ctx, s.store, "inferred", executor.WithAllocator(mem))
				require.NoError(t, err)
				schema := scan.Schema()
				require.Equal(t, 3, schema.NumFields())
				require.Equal(t, "id", schema.Field(0).Name)
				require.Equal(t, arrow.INT64, schema.Field(0).Type.ID())
				require.Equal(t, arrow.STRING, schema.Field(1).Type.ID())
				require.Equal(t, arrow.FLOAT64, schema.Field(2).Type.ID())
				require.Equal(t, 9, totalRows(execute(t, scan, 0)))
			})

			t.Run("pattern filters partitions", func(t *testing.T) {
				require.NoError(t, s.store.Put(ctx, "aggregate/README.txt", []byte("not a partition")))
				scan, err := executor.NewCsvExec(ctx, s.store, "aggregate", executor.WithSchema(testutils.Schema()))
				require.NoError(t, err)
				require.Equal(t, 4, scan.OutputPartitioning().PartitionCount())

				scan, err = executor.NewCsvExec(ctx, s.store, "aggregate",
					executor.WithSchema(testutils.Schema()),
					executor.WithPattern("part-[01].csv"),
				)
				require.NoError(t, err)
				require.Equal(t, 2, scan.OutputPartitioning().PartitionCount())
				require.Equal(t, "[scan aggregate 2]", scan.String())
			})

			t.Run("missing table", func(t *testing.T) {
				_, err := executor.NewCsvExec(ctx, s.store, "missing", executor.WithSchema(testutils.Schema()))
				require.ErrorIs(t, err, executor.ErrTableNotFound)
			})

			t.Run("invalid options", func(t *testing.T) {
				_, err := executor.NewCsvExec(ctx, s.store, "aggregate", executor.WithBatchSize(0))
				require.Error(t, err)
				_, err = executor.NewCsvExec(ctx, s.store, "aggregate", executor.WithPattern("[a"))
				require.Error(t, err)
			})

			t.Run("out of range partition", func(t *testing.T) {
				scan, err := executor.NewCsvExec(ctx, s.store, "aggregate", executor.WithSchema(testutils.Schema()))
				require.NoError(t, err)
				_, err = scan.Execute(ctx, 4)
				require.ErrorIs(t, err, executor.ErrPartitionOutOfRange)
			})

			t.Run("decode errors abort the limit", func(t *testing.T) {
				require.NoError(t, s.store.Put(ctx, "broken/part-0.csv", []byte(testutils.CSV(0, 5))))
				require.NoError(t, s.store.Put(ctx, "broken/part-1.csv", []byte("id,name,score\nx,y,z\n")))
				scan, err := executor.NewCsvExec(ctx, s.store, "broken", executor.WithSchema(testutils.Schema()))
				require.NoError(t, err)
				it, err := executor.NewGlobalLimitExec(scan, 100, 2).Execute(ctx, 0)
				require.Error(t, err)
				require.Nil(t, it)
			})
		})
	}
}

// countingStore counts object reads.
type countingStore struct {
	storage.Provider
	gets int
}

func (c *countingStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	c.gets++
	return c.Provider.Get(ctx, id)
}

func TestCsvExecSchemaCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Provider: storage.NewMemStore()}
	require.NoError(t, store.Put(ctx, "events/part-0.csv", []byte(testutils.CSV(1, 10))))
	cache := executor.NewSchemaCache(8)

	first, err := executor.NewCsvExec(ctx, store, "events", executor.WithSchemaCache(cache))
	require.NoError(t, err)
	require.Equal(t, 1, store.gets)

	second, err := executor.NewCsvExec(ctx, store, "events", executor.WithSchemaCache(cache))
	require.NoError(t, err)
	require.Equal(t, 1, store.gets)
	require.True(t, first.Schema().Equal(second.Schema()))

	_, err = executor.NewCsvExec(ctx, store, "events")
	require.NoError(t, err)
	require.Equal(t, 2, store.gets)

	t.Run("replaced object is reinferred", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "events/part-0.csv", []byte("a,b\n1,x\n2,y\n")))
		gets := store.gets
		scan, err := executor.NewCsvExec(ctx, store, "events", executor.WithSchemaCache(cache))
		require.NoError(t, err)
		require.Equal(t, gets+1, store.gets)

		schema := scan.Schema()
		require.Equal(t, 2, schema.NumFields())
		require.Equal(t, "a", schema.Field(0).Name)
		require.Equal(t, arrow.INT64, schema.Field(0).Type.ID())
		require.Equal(t, "b", schema.Field(1).Name)
		require.Equal(t, arrow.STRING, schema.Field(1).Type.ID())
		require.Equal(t, 2, totalRows(execute(t, scan, 0)))
	})
}

func TestCsvExecEmptyFirstValue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	require.NoError(t, store.Put(ctx, "people/part-0.csv", []byte("id,name\n1,\n2,bob\n")))

	scan, err := executor.NewCsvExec(ctx, store, "people")
	require.NoError(t, err)
	field := scan.Schema().Field(1)
	require.Equal(t, "name", field.Name)
	require.Equal(t, arrow.STRING, field.Type.ID())
	require.True(t, field.Nullable)

	records := execute(t, scan, 0)
	require.Equal(t, 2, totalRows(records))
	names, ok := records[0].Column(1).(*array.String)
	require.True(t, ok)
	require.True(t, names.IsNull(0))
	require.Equal(t, "bob", names.Value(1))
}
