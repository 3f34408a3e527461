package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/wkalt/colq/storage"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/log"
)

/*
CsvExec scans a table stored as CSV objects. Each object under the table's
prefix that matches the partition pattern is one partition, in sorted name
order. Records are decoded lazily, one chunk at a time, so a consumer that
stops pulling early never causes the remainder of an object to be decoded.

The schema is either supplied or inferred once from the first partition, and is
shared by every partition of the scan. Columns whose first value is empty infer
as null; these are widened to nullable strings so later values still decode.
Cached schemas are keyed by the version of the object they were inferred from,
so replacing that object invalidates the entry.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	defaultBatchSize = 1024
	defaultPattern   = "**/*.csv"
)

// CsvOption is a functional option for the CSV scan.
type CsvOption func(*csvOptions)

type csvOptions struct {
	schema    *arrow.Schema
	batchSize int
	pattern   string
	mem       memory.Allocator
	schemas   *util.LRU[SchemaKey, *arrow.Schema]
}

// WithSchema sets the schema of the table. If unset, it is inferred from the
// header and first row of the first partition.
func WithSchema(schema *arrow.Schema) CsvOption {
	return func(opts *csvOptions) {
		opts.schema = schema
	}
}

// WithBatchSize sets the maximum number of rows per decoded record.
func WithBatchSize(n int) CsvOption {
	return func(opts *csvOptions) {
		opts.batchSize = n
	}
}

// WithPattern sets the glob that partition object names must match, relative
// to the table prefix.
func WithPattern(pattern string) CsvOption {
	return func(opts *csvOptions) {
		opts.pattern = pattern
	}
}

// WithAllocator sets the allocator used for decoded records.
func WithAllocator(mem memory.Allocator) CsvOption {
	return func(opts *csvOptions) {
		opts.mem = mem
	}
}

// SchemaKey identifies the version of an object a schema was inferred from.
type SchemaKey struct {
	ID      string
	Version string
}

// NewSchemaCache returns a schema cache holding at most capacity entries.
func NewSchemaCache(capacity int) *util.LRU[SchemaKey, *arrow.Schema] {
	return util.NewLRU[SchemaKey, *arrow.Schema](capacity)
}

// WithSchemaCache caches inferred schemas. It has no effect when a schema is
// supplied.
func WithSchemaCache(cache *util.LRU[SchemaKey, *arrow.Schema]) CsvOption {
	return func(opts *csvOptions) {
		opts.schemas = cache
	}
}

// CsvExec represents a scan over a partitioned CSV table.
type CsvExec struct {
	store      storage.Provider
	table      string
	partitions []string
	schema     *arrow.Schema
	batchSize  int
	mem        memory.Allocator
}

// NewCsvExec discovers the partitions of a table and constructs a scan over
// them. It returns ErrTableNotFound if no objects match.
func NewCsvExec(ctx context.Context, store storage.Provider, table string, opts ...CsvOption) (*CsvExec, error) {
	options := csvOptions{
		batchSize: defaultBatchSize,
		pattern:   defaultPattern,
		mem:       memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.batchSize < 1 {
		return nil, fmt.Errorf("invalid batch size %d", options.batchSize)
	}
	if !doublestar.ValidatePattern(options.pattern) {
		return nil, fmt.Errorf("invalid partition pattern %q", options.pattern)
	}
	prefix := strings.TrimSuffix(table, "/") + "/"
	ids, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", table, err)
	}
	partitions := []string{}
	for _, id := range ids {
		if doublestar.MatchUnvalidated(options.pattern, strings.TrimPrefix(id, prefix)) {
			partitions = append(partitions, id)
		}
	}
	if len(partitions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	scan := &CsvExec{
		store:      store,
		table:      table,
		partitions: partitions,
		schema:     options.schema,
		batchSize:  options.batchSize,
		mem:        options.mem,
	}
	if scan.schema == nil {
		scan.schema, err = scan.loadSchema(ctx, options.schemas)
		if err != nil {
			return nil, err
		}
	}
	log.Debugw(ctx, "csv scan",
		"table", table,
		"partitions", len(partitions),
		"schema", scan.schema.String(),
	)
	return scan, nil
}

func (n *CsvExec) loadSchema(ctx context.Context, cache *util.LRU[SchemaKey, *arrow.Schema]) (*arrow.Schema, error) {
	if cache == nil {
		return n.inferSchema(ctx)
	}
	info, err := n.store.Stat(ctx, n.partitions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", n.partitions[0], err)
	}
	key := SchemaKey{ID: n.partitions[0], Version: info.Version}
	return cache.GetOrLoad(key, func() (*arrow.Schema, error) {
		return n.inferSchema(ctx)
	})
}

// inferSchema reads the header and first row of the first partition.
func (n *CsvExec) inferSchema(ctx context.Context) (*arrow.Schema, error) {
	rc, err := n.store.Get(ctx, n.partitions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", n.partitions[0], err)
	}
	defer rc.Close()
	r := csv.NewInferringReader(rc,
		csv.WithHeader(true),
		csv.WithChunk(1),
		csv.WithAllocator(n.mem),
		csv.WithNullReader(true, ""),
	)
	defer r.Release()
	if !r.Next() {
		if err := r.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to infer schema of %s: %w", n.table, err)
		}
		return nil, fmt.Errorf("failed to infer schema of %s: no data rows", n.table)
	}
	return widenNullFields(r.Schema()), nil
}

// widenNullFields replaces null-typed fields with nullable strings.
func widenNullFields(schema *arrow.Schema) *arrow.Schema {
	fields := schema.Fields()
	widened := false
	for i, field := range fields {
		if field.Type.ID() == arrow.NULL {
			fields[i] = arrow.Field{
				Name:     field.Name,
				Type:     arrow.BinaryTypes.String,
				Nullable: true,
				Metadata: field.Metadata,
			}
			widened = true
		}
	}
	if !widened {
		return schema
	}
	metadata := schema.Metadata()
	return arrow.NewSchema(fields, &metadata)
}

// Schema returns the schema of the table.
func (n *CsvExec) Schema() *arrow.Schema {
	return n.schema
}

// OutputPartitioning returns one partition per CSV object.
func (n *CsvExec) OutputPartitioning() Partitioning {
	return UnknownPartitioning(len(n.partitions))
}

// Execute opens a partition for reading.
func (n *CsvExec) Execute(ctx context.Context, partition int) (RecordIterator, error) {
	if err := checkPartition("csv", partition, len(n.partitions)); err != nil {
		return nil, err
	}
	id := n.partitions[partition]
	rc, err := n.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	r := csv.NewReader(rc, n.schema,
		csv.WithHeader(true),
		csv.WithChunk(n.batchSize),
		csv.WithAllocator(n.mem),
		csv.WithNullReader(true, ""),
	)
	return NewSharedIterator(&csvIterator{id: id, rc: rc, r: r}), nil
}

// String returns a string representation of the node.
func (n *CsvExec) String() string {
	return fmt.Sprintf("[scan %s %d]", n.table, len(n.partitions))
}

// csvIterator decodes records from one CSV object.
type csvIterator struct {
	id string
	rc io.ReadCloser
	r  *csv.Reader
}

func (it *csvIterator) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !it.r.Next() {
		if err := it.r.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode %s: %w", it.id, err)
		}
		return nil, io.EOF
	}
	if err := it.r.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode %s: %w", it.id, err)
	}
	rec := it.r.Record()
	rec.Retain()
	return rec, nil
}

func (it *csvIterator) Close() error {
	it.r.Release()
	if err := it.rc.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", it.id, err)
	}
	return nil
}
