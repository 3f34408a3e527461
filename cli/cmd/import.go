package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/wkalt/colq/storage"
	"github.com/wkalt/colq/util"
	"golang.org/x/sync/errgroup"
)

var (
	importWorkers int
	importStorage storageFlags
)

// expandPatterns resolves glob patterns to a sorted, deduplicated list of
// files.
func expandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	paths := []string{}
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files found matching %s", pattern)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	return paths, nil
}

// importFiles uploads each file as a partition of table, named by its base
// name.
func importFiles(ctx context.Context, store storage.Provider, table string, paths []string, workers int) error {
	names := map[string]string{}
	for _, path := range paths {
		name := filepath.Base(path)
		if prev, ok := names[name]; ok {
			return fmt.Errorf("files %s and %s would both be imported as %s", prev, path, name)
		}
		names[name] = path
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			id := table + "/" + filepath.Base(path)
			if err := store.Put(ctx, id, data); err != nil {
				return fmt.Errorf("failed to upload %s: %w", path, err)
			}
			fmt.Printf("imported %s (%s) as %s\n", path, util.HumanBytes(uint64(len(data))), id)
			return nil
		})
	}
	return g.Wait()
}

var importCmd = &cobra.Command{
	Use:   "import [table] [files...]",
	Short: "Import CSV files as partitions of a table",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			bailf("import requires a table and at least one file")
		}
		store, err := importStorage.open()
		if err != nil {
			bailf("%s", err)
		}
		paths, err := expandPatterns(args[1:])
		if err != nil {
			bailf("%s", err)
		}
		if err := importFiles(cmd.Context(), store, args[0], paths, importWorkers); err != nil {
			bailf("%s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importStorage.register(importCmd)
	importCmd.PersistentFlags().IntVarP(&importWorkers, "workers", "w", runtime.NumCPU()/2, "Concurrent uploads")
}
