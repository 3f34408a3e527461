package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "colq",
	Short: "Query partitioned CSV tables",
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func printError(s string) {
	color.New(color.FgRed).Fprintln(os.Stderr, "ERROR: "+s)
}

func bailf(format string, args ...interface{}) {
	printError(fmt.Sprintf(format, args...))
	os.Exit(1)
}
