package executor

import (
	"bufio"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
)

/*
Result writers serialize query output. Records are handed to a writer in
result order and remain owned by the caller; a writer that needs a record after
WriteRecord returns must retain it.
*/

////////////////////////////////////////////////////////////////////////////////

// ResultWriter receives the output of a query.
type ResultWriter interface {
	WriteSchema(schema *arrow.Schema) error
	WriteRecord(rec arrow.Record) error
	WriteExplain(plan string) error
	Flush() error
}

// JSONWriter writes one JSON object per row, with keys in schema order.
type JSONWriter struct {
	w      *bufio.Writer
	fields []string
}

// NewJSONWriter returns a writer producing JSON lines on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w)}
}

// WriteSchema records the field names used as object keys.
func (jw *JSONWriter) WriteSchema(schema *arrow.Schema) error {
	jw.fields = make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		key, err := json.Marshal(field.Name)
		if err != nil {
			return fmt.Errorf("failed to encode field name %s: %w", field.Name, err)
		}
		jw.fields[i] = string(key)
	}
	return nil
}

// WriteRecord writes each row of rec as a JSON object.
func (jw *JSONWriter) WriteRecord(rec arrow.Record) error {
	if len(jw.fields) != int(rec.NumCols()) {
		return fmt.Errorf("record has %d columns, schema has %d", rec.NumCols(), len(jw.fields))
	}
	for row := 0; row < int(rec.NumRows()); row++ {
		if err := jw.w.WriteByte('{'); err != nil {
			return err
		}
		for i, col := range rec.Columns() {
			if i > 0 {
				if err := jw.w.WriteByte(','); err != nil {
					return err
				}
			}
			value, err := json.Marshal(col.GetOneForMarshal(row))
			if err != nil {
				return fmt.Errorf("failed to encode column %s: %w", rec.ColumnName(i), err)
			}
			if _, err := jw.w.WriteString(jw.fields[i]); err != nil {
				return err
			}
			if err := jw.w.WriteByte(':'); err != nil {
				return err
			}
			if _, err := jw.w.Write(value); err != nil {
				return err
			}
		}
		if _, err := jw.w.WriteString("}\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteExplain writes the plan as a single JSON object.
func (jw *JSONWriter) WriteExplain(plan string) error {
	data, err := json.Marshal(map[string]string{"explain": plan})
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if _, err := jw.w.Write(data); err != nil {
		return err
	}
	return jw.w.WriteByte('\n')
}

// Flush flushes buffered output.
func (jw *JSONWriter) Flush() error {
	return jw.w.Flush()
}
