package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/colq/cli/util"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/query/plan"
	"github.com/wkalt/colq/query/ql"
	"github.com/wkalt/colq/storage"
)

var (
	queryJSON        bool
	queryConcurrency int
	queryBatchSize   int
	queryNoPrefilter bool
	queryStorage     storageFlags
)

// runQuery parses, plans, and executes a query against store.
func runQuery(ctx context.Context, store storage.Provider, query string, w executor.ResultWriter) error {
	ast, err := ql.NewParser().ParseString("", query)
	if err != nil {
		return fmt.Errorf("error parsing query: %w", err)
	}
	qp, err := plan.CompileQuery(*ast)
	if err != nil {
		return err
	}
	sf := executor.NewCsvScanFactory(store, executor.WithBatchSize(queryBatchSize))
	return executor.Run(ctx, w, qp, sf,
		executor.WithDefaultConcurrency(queryConcurrency),
		executor.WithLimitOptions(executor.WithLocalPrefilter(!queryNoPrefilter)),
	)
}

func resultWriter() executor.ResultWriter {
	if queryJSON || util.StdoutRedirected() {
		return executor.NewJSONWriter(os.Stdout)
	}
	return util.NewTableWriter(os.Stdout)
}

var queryCmd = &cobra.Command{
	Use:   "query [single-quoted string]",
	Short: "Execute a query against local or S3 storage",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			bailf("query requires exactly one single-quoted query string")
		}
		store, err := queryStorage.open()
		if err != nil {
			bailf("%s", err)
		}
		if err := runQuery(cmd.Context(), store, args[0], resultWriter()); err != nil {
			bailf("%s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryStorage.register(queryCmd)
	queryCmd.PersistentFlags().BoolVarP(&queryJSON, "json", "", false, "Output in JSON format")
	queryCmd.PersistentFlags().IntVarP(&queryConcurrency, "concurrency", "c", 4, "Partitions read at once")
	queryCmd.PersistentFlags().IntVarP(&queryBatchSize, "batch-size", "b", 1024, "Rows per decoded batch")
	queryCmd.PersistentFlags().BoolVarP(&queryNoPrefilter, "no-prefilter", "", false, "Disable per-partition limits")
}
