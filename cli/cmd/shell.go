package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/colq/cli/util"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/storage"
)

const (
	prompt             = "colq # "
	continuationPrompt = "...  # "
)

var shellStorage storageFlags

// describeTable prints the columns and partition count of a table.
func describeTable(ctx context.Context, w io.Writer, store storage.Provider, table string) error {
	scan, err := executor.NewCsvExec(ctx, store, table, executor.WithBatchSize(queryBatchSize))
	if err != nil {
		return err
	}
	headers := []string{"column", "type", "nullable"}
	rows := [][]string{}
	for _, field := range scan.Schema().Fields() {
		rows = append(rows, []string{field.Name, field.Type.String(), fmt.Sprintf("%v", field.Nullable)})
	}
	util.PrintTable(w, 200, headers, rows)
	_, err = fmt.Fprintf(w, "(%d partitions)\n", scan.OutputPartitioning().PartitionCount())
	return err
}

func runShell(ctx context.Context, store storage.Provider) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     "/tmp/colq-history.tmp",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()
	log.SetOutput(l.Stderr())
	fmt.Println(`Type "help" for help.`)
	fmt.Println()

	lines := []string{}
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				lines = lines[:0]
				l.SetPrompt(prompt)
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "help", line == "\\h":
			fmt.Println(shellHelp)
			continue
		case strings.HasPrefix(line, "\\d "):
			table := strings.TrimSpace(strings.TrimPrefix(line, "\\d "))
			if err := describeTable(ctx, os.Stdout, store, table); err != nil {
				printError(err.Error())
			}
			continue
		case strings.HasPrefix(line, "\\"):
			printError("unrecognized command: " + line)
			continue
		}

		lines = append(lines, line)
		if !strings.HasSuffix(line, ";") {
			l.SetPrompt(continuationPrompt)
			continue
		}
		query := strings.Join(lines, " ")
		lines = lines[:0]
		l.SetPrompt(prompt)
		if err := l.SaveHistory(query); err != nil {
			printError(err.Error())
		}
		if err := runQuery(ctx, store, query, resultWriter()); err != nil {
			printError(err.Error())
		}
	}
	return nil
}

const shellHelp = `The colq shell runs queries against partitioned CSV tables. Each table is a
directory (or S3 prefix) of CSV files, and each file is one partition.

Queries can span multiple lines and are terminated with a semicolon:

  from events;
  from events limit 10;
  from events limit 10 concurrency 2;
  explain from events limit 10;

Slash commands:

  \h      print this text
  \d name describe a table`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive query shell",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := shellStorage.open()
		if err != nil {
			bailf("%s", err)
		}
		if err := runShell(cmd.Context(), store); err != nil {
			bailf("error running shell: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellStorage.register(shellCmd)
}
