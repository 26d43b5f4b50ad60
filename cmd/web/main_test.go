package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-while/go-pugblog/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedCommand(t *testing.T, args ...string) (*cobra.Command, *ServeRequest) {
	t.Helper()
	request := &ServeRequest{}
	cmd := &cobra.Command{Use: "test"}
	bindFlags(cmd, request)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, request
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd, request := parsedCommand(t)
	cfg, err := loadConfig(cmd, request)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultListenPort, cfg.Web.ListenPort)
	assert.Equal(t, config.DefaultBasePath, cfg.Web.BasePath)
	assert.Equal(t, config.StoreMemory, cfg.Store.Driver)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[web]
listen_port = 12000
base_path = "/journal"

[store]
driver = "sqlite"
`), 0o644))

	cmd, request := parsedCommand(t, "--config", path)
	cfg, err := loadConfig(cmd, request)
	require.NoError(t, err)
	assert.Equal(t, 12000, cfg.Web.ListenPort)
	assert.Equal(t, "/journal", cfg.Web.BasePath)
	assert.Equal(t, config.StoreSQLite, cfg.Store.Driver)

	cmd, request = parsedCommand(t, "--config", path, "--webport", "13000", "--base-path", "/blog", "--store", "memory", "--log-level", "debug")
	cfg, err = loadConfig(cmd, request)
	require.NoError(t, err)
	assert.Equal(t, 13000, cfg.Web.ListenPort)
	assert.Equal(t, "/blog", cfg.Web.BasePath)
	assert.Equal(t, config.StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	cmd, request := parsedCommand(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := loadConfig(cmd, request)
	assert.Error(t, err, "an explicit config path must exist")

	cmd, request = parsedCommand(t, "--config", "", "--webport", "80")
	_, err = loadConfig(cmd, request)
	assert.Error(t, err, "privileged port rejected")

	cmd, request = parsedCommand(t, "--config", "", "--base-path", "posts/")
	_, err = loadConfig(cmd, request)
	assert.Error(t, err)
}
