package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/logger"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the collections of the configured Qdrant instance",
	Long: `List the collections of the configured Qdrant instance, one per line.

Examples:
  # Against the defaults (localhost:6334)
  vector-db-proxy collections

  # Against a remote instance
  VECTORPROXY_QDRANT__ENDPOINT=qdrant.internal vector-db-proxy collections`,
	Args: cobra.NoArgs,
	RunE: runCollections,
}

func runCollections(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLoggerClient(cfg.Logger)
	defer func() { _ = log.Zap.Sync() }()

	timeout := cfg.Qdrant.Timeout
	if timeout <= 0 {
		timeout = qdrant.DefaultConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc, err := qdrant.Dial(ctx, cfg.Qdrant, log)
	if err != nil {
		return err
	}
	store := qdrant.NewStore(svc, cfg.Qdrant, log)
	defer func() { _ = store.Close() }()

	names, err := store.ListCollections(ctx)
	if err != nil {
		return err
	}
	return printCollections(cmd.OutOrStdout(), names)
}

func printCollections(w io.Writer, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
