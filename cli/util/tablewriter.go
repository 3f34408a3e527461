/*
tablewriter.go

MIT License

Copyright (c) Foxglove Technologies Inc

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

/*
 Taken from https://github.com/foxglove/foxglove-cli/blob/main/foxglove/util/tablewriter/tablewriter.go
*/

package util

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

func computeHotdogCellWidths(headers []string, data [][]string) (int, []int) {
	cellWidths := make([]int, len(headers))
	for i, header := range headers {
		headerWidth := len(header) + 4 // pad two spaces each side
		cellWidths[i] = headerWidth
	}
	for _, row := range data {
		for i, column := range row {
			columnWidth := len(column) + 2 // pad one space per side
			if cellWidths[i] < columnWidth {
				cellWidths[i] = columnWidth
			}
		}
	}

	// size the cells so the headers can be center-spaced
	for i, header := range headers {
		if (cellWidths[i]-len(header))%2 == 1 {
			cellWidths[i] += 1
		}
	}

	tableWidth := len(headers) + 1
	for _, width := range cellWidths {
		tableWidth += width
	}

	return tableWidth, cellWidths
}

/*
printHotDog outputs a table of records formatted like this:
|          ID          |         Name         |      Created At      |      Updated At      |
|----------------------|----------------------|----------------------|----------------------|
| dev_qOo9LfqjfymSj50y | hilti-handheld       | 2023-06-01T11:37:55Z | 2023-06-01T11:37:55Z |
| dev_kmJaeAdpSyLkqORp | my-new-device        | 2023-05-26T16:40:38Z | 2023-05-26T16:40:38Z |
*/
func printHotDog(w io.Writer, headers []string, data [][]string) {
	_, cellWidths := computeHotdogCellWidths(headers, data)

	// write the headers
	fmt.Fprintf(w, "|")
	for i, header := range headers {
		padding := (cellWidths[i] - len(header)) / 2
		fmt.Fprintf(w, "%s%s%s|", strings.Repeat(" ", padding), header, strings.Repeat(" ", padding))
	}
	fmt.Fprintln(w)

	// write the separator
	fmt.Fprintf(w, "|")
	for _, width := range cellWidths {
		fmt.Fprint(w, strings.Repeat("-", width))
		fmt.Fprintf(w, "|")
	}
	fmt.Fprintln(w)

	// write the data
	for _, row := range data {
		fmt.Fprint(w, "|")
		for i, col := range row {
			fmt.Fprintf(w, " %s%s|", col, strings.Repeat(" ", cellWidths[i]-len(col)-1))
		}
		fmt.Fprintln(w)
	}
}

/*
printHamburger outputs a series of records formatted like this:

	-[ RECORD 17 ]+-----------------------------------
	ID            | dev_zZFmSJfwI4OX4HJq
	Name          | roman-gps-mcap
	Created At    | 2021-11-17T18:23:49Z
	Updated At    | 2021-11-17T18:23:49Z
*/
func printHamburger(w io.Writer, termwidth int, headers []string, data [][]string) {
	var maxHeaderWidth int
	var maxRecordWidth int

	// compute the max header width
	for _, header := range headers {
		if len(header) > maxHeaderWidth {
			maxHeaderWidth = len(header)
		}
	}

	// compute the max record width
	for _, row := range data {
		for _, col := range row {
			if len(col) > maxRecordWidth {
				maxRecordWidth = len(col)
			}
		}
	}

	// ensure there is sufficient room to accommodate the highest record header
	// required.
	longestRecordHeader := fmt.Sprintf("-[ RECORD %d ]", len(data)+1)
	if len(longestRecordHeader) > maxHeaderWidth {
		maxHeaderWidth = len(longestRecordHeader)
	}

	// rightExtent is how far to extend  the dashes after the +. If there's
	// sufficient room, set it 15 spaces farther than the max record width. If
	// this would cause a wrap, set it to fill the term width.
	dashesRightExtent := maxRecordWidth + 15
	maxAllowedExtent := termwidth - maxHeaderWidth - 1
	if dashesRightExtent > maxAllowedExtent {
		dashesRightExtent = maxAllowedExtent
	}
	rightDashes := strings.Repeat("-", dashesRightExtent)

	// print the records
	for i, row := range data {
		recordHeader := fmt.Sprintf("-[ RECORD %d ]", i+1)
		header := fmt.Sprintf(
			"%s%s+%s",
			recordHeader,
			strings.Repeat("-", maxHeaderWidth-len(recordHeader)),
			rightDashes,
		)
		fmt.Fprintln(w, header)
		for j, col := range row {
			fmt.Fprintf(w, "%-*s| %-*s", maxHeaderWidth, headers[j], dashesRightExtent-1, col)
			fmt.Fprintln(w)
		}
	}
}

func getTermWidth() int {
	cmd := exec.Command("stty", "size")
	cmd.Stdin = os.Stdin
	out, err := cmd.Output()
	if err != nil {
		return 80
	}
	var rows, cols int
	_, err = fmt.Sscanf(string(out), "%d %d", &rows, &cols)
	if err != nil {
		return 80
	}
	return cols
}

// PrintTable prints rows as a table if it fits in termWidth columns, and as a
// series of expanded records otherwise.
func PrintTable(w io.Writer, termWidth int, headers []string, data [][]string) {
	tableWidth, _ := computeHotdogCellWidths(headers, data)
	if termWidth < tableWidth {
		printHamburger(w, termWidth, headers, data)
		return
	}
	printHotDog(w, headers, data)
}

// TableWriter is a query result writer that buffers rows and prints them as a
// table on flush. Explain output is printed as an indented plan tree.
type TableWriter struct {
	w         io.Writer
	termWidth int
	headers   []string
	rows      [][]string
}

// NewTableWriter returns a table writer sized to the terminal.
func NewTableWriter(w io.Writer) *TableWriter {
	return NewTableWriterWidth(w, getTermWidth())
}

// NewTableWriterWidth returns a table writer for a terminal of the given width.
func NewTableWriterWidth(w io.Writer, termWidth int) *TableWriter {
	return &TableWriter{w: w, termWidth: termWidth}
}

// WriteSchema sets the table headers.
func (t *TableWriter) WriteSchema(schema *arrow.Schema) error {
	t.headers = make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		t.headers[i] = field.Name
	}
	return nil
}

// WriteRecord buffers the rows of rec.
func (t *TableWriter) WriteRecord(rec arrow.Record) error {
	for row := 0; row < int(rec.NumRows()); row++ {
		values := make([]string, rec.NumCols())
		for i, col := range rec.Columns() {
			if col.IsNull(row) {
				values[i] = "NULL"
				continue
			}
			values[i] = col.ValueStr(row)
		}
		t.rows = append(t.rows, values)
	}
	return nil
}

// WriteExplain prints the plan tree.
func (t *TableWriter) WriteExplain(plan string) error {
	return PrintPlan(t.w, plan)
}

// Flush prints the buffered rows followed by a row count.
func (t *TableWriter) Flush() error {
	if t.headers == nil {
		return nil
	}
	PrintTable(t.w, t.termWidth, t.headers, t.rows)
	noun := "rows"
	if len(t.rows) == 1 {
		noun = "row"
	}
	_, err := fmt.Fprintf(t.w, "(%d %s)\n", len(t.rows), noun)
	t.rows = nil
	return err
}
