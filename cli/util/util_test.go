package util_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/cli/util"
	"github.com/wkalt/colq/util/testutils"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintPlan(t *testing.T) {
	cases := []struct {
		assertion string
		plan      string
		output    string
	}{
		{
			"single node",
			"[scan events 4]",
			"scan events 4\n",
		},
		{
			"nested",
			"[limit 3 [merge 4 [scan events 4]]]",
			"limit 3\n-> merge 4\n  -> scan events 4\n",
		},
		{
			"siblings",
			"[union [scan a 1] [scan b 2]]",
			"union\n-> scan a 1\n-> scan b 2\n",
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, util.PrintPlan(buf, c.plan))
			require.Equal(t, c.output, buf.String())
		})
	}

	t.Run("malformed", func(t *testing.T) {
		for _, plan := range []string{"scan", "[scan", "[scan] extra", "[limit [scan]"} {
			require.Error(t, util.PrintPlan(&bytes.Buffer{}, plan), plan)
		}
	})
}

func TestTableWriter(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	schema := testutils.Schema()
	rec := testutils.NewRecord(mem, schema, 6, 7)
	defer rec.Release()

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := util.NewTableWriterWidth(buf, 200)
		require.NoError(t, w.WriteSchema(schema))
		require.NoError(t, w.WriteRecord(rec))
		require.NoError(t, w.Flush())
		expected := "|  id  |  name  |  score  |\n" +
			"|------|--------|---------|\n" +
			"| 6    | row-6  | 3       |\n" +
			"| 7    | NULL   | 3.5     |\n" +
			"(2 rows)\n"
		require.Equal(t, expected, buf.String())
	})

	t.Run("narrow terminal", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := util.NewTableWriterWidth(buf, 26)
		require.NoError(t, w.WriteSchema(schema))
		require.NoError(t, w.WriteRecord(rec))
		require.NoError(t, w.Flush())
		require.Contains(t, buf.String(), "-[ RECORD 1 ]")
		require.Contains(t, buf.String(), "-[ RECORD 2 ]")
	})

	t.Run("explain", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := util.NewTableWriterWidth(buf, 80)
		require.NoError(t, w.WriteExplain("[limit 1 [scan t 1]]"))
		require.NoError(t, w.Flush())
		require.Equal(t, "limit 1\n-> scan t 1\n", buf.String())
	})
}
