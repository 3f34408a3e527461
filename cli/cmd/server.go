package cmd

import (
	"github.com/spf13/cobra"
	"github.com/wkalt/colq/service"
	"github.com/wkalt/colq/util/log"
)

var (
	serverPort        int
	serverLogLevel    string
	serverConcurrency int
	serverBatchSize   int
	serverNoPrefilter bool
	serverStorage     storageFlags
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the colq server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logLevel, err := log.ParseLevel(serverLogLevel)
		if err != nil {
			bailf("%s", err)
		}
		store, err := serverStorage.open()
		if err != nil {
			bailf("%s", err)
		}
		svc := service.NewService()
		if err := svc.Start(ctx,
			service.WithPort(serverPort),
			service.WithLogLevel(logLevel),
			service.WithStorageProvider(store),
			service.WithConcurrency(serverConcurrency),
			service.WithBatchSize(serverBatchSize),
			service.WithPrefilter(!serverNoPrefilter),
		); err != nil {
			bailf("Shutdown error: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverStorage.register(serverCmd)
	serverCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 8089, "Port to listen on")
	serverCmd.PersistentFlags().StringVarP(&serverLogLevel, "log-level", "l", "info", "Log level")
	serverCmd.PersistentFlags().IntVarP(&serverConcurrency, "concurrency", "c", 4, "Partitions read at once per query")
	serverCmd.PersistentFlags().IntVarP(&serverBatchSize, "batch-size", "b", 1024, "Rows per decoded batch")
	serverCmd.PersistentFlags().BoolVarP(&serverNoPrefilter, "no-prefilter", "", false, "Disable per-partition limits")
}
