package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/config"
)

func TestRootCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	assert.True(t, names["serve"])
	assert.True(t, names["collections"])

	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestAppGraphIsComplete(t *testing.T) {
	cfg := config.Default()
	cfg.Qdrant.Collection = "documents"

	require.NoError(t, fx.ValidateApp(appOptions(cfg)...))
}

func TestPrintCollectionsSorted(t *testing.T) {
	var buf bytes.Buffer
	in := []string{"zeta", "alpha", "documents"}

	require.NoError(t, printCollections(&buf, in))
	assert.Equal(t, "alpha\ndocuments\nzeta\n", buf.String())
	assert.Equal(t, []string{"zeta", "alpha", "documents"}, in)
}

func TestPrintCollectionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCollections(&buf, nil))
	assert.Empty(t, buf.String())
}
