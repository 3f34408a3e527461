package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/query/plan"
	"github.com/wkalt/colq/query/ql"
)

func TestCompileQuery(t *testing.T) {
	cases := []struct {
		assertion   string
		query       string
		output      string
		concurrency int
		explain     bool
	}{
		{
			"single scan",
			"from events;",
			"[scan events]",
			0,
			false,
		},
		{
			"scan with limit",
			"from events limit 10;",
			"[limit 10 [scan events]]",
			0,
			false,
		},
		{
			"limit zero",
			"from events limit 0;",
			"[limit 0 [scan events]]",
			0,
			false,
		},
		{
			"concurrency",
			"from events concurrency 4 limit 3;",
			"[limit 3 [scan events]]",
			4,
			false,
		},
		{
			"explain",
			"explain from events limit 3;",
			"[limit 3 [scan events]]",
			0,
			true,
		},
	}
	parser := ql.NewParser()
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			ast, err := parser.ParseString("", c.query)
			require.NoError(t, err)
			qp, err := plan.CompileQuery(*ast)
			require.NoError(t, err)
			require.Equal(t, c.output, qp.Root.String())
			require.Equal(t, c.concurrency, qp.Concurrency)
			require.Equal(t, c.explain, qp.Explain)
		})
	}
}

func TestCompileQueryErrors(t *testing.T) {
	cases := []struct {
		assertion string
		query     string
	}{
		{"duplicate limit", "from events limit 1 limit 2;"},
		{"duplicate concurrency", "from events concurrency 1 concurrency 2;"},
		{"zero concurrency", "from events concurrency 0;"},
	}
	parser := ql.NewParser()
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			ast, err := parser.ParseString("", c.query)
			require.NoError(t, err)
			_, err = plan.CompileQuery(*ast)
			require.ErrorIs(t, err, plan.BadPlanError{})
			var bad plan.BadPlanError
			require.ErrorAs(t, err, &bad)
			require.Equal(t, plan.Usage, bad.Detail())
		})
	}

	t.Run("missing table", func(t *testing.T) {
		_, err := plan.CompileQuery(ql.Query{})
		require.ErrorIs(t, err, plan.BadPlanError{})
	})
}
