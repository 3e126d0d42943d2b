// Package main implements the vector-db-proxy command: a Qdrant proxy that
// keeps its RabbitMQ ingestion topology bound across reconnects.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/config"
)

var (
	// configPath points at an optional YAML file layered over the defaults.
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vector-db-proxy",
	Short: "Proxy between the ingestion broker and the Qdrant vector store",
	Long: `vector-db-proxy fronts a Qdrant vector store and supervises the RabbitMQ
connection that feeds it.

Configuration is read from an optional YAML file and then from environment
variables prefixed with VECTORPROXY_, using "__" between sections:

  VECTORPROXY_QDRANT__ENDPOINT=qdrant.internal
  VECTORPROXY_RABBIT__CONNECTION__HOST=rabbitmq.internal`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
