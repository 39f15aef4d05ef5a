package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 16, cfg.Transport.ContextPoolSize)
	assert.Equal(t, uint32(100003), cfg.Server.RPCProgramNumber)
}

func TestLoadFallsBackToDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadReadsYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
server:
  address: nfs.example.com
  port: 2050
transport:
  context_pool_size: 4
  send_buffer_size: "2Mi"
logging:
  level: DEBUG
  format: json
  output: stdout
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nfs.example.com", cfg.Server.Address)
	assert.Equal(t, 2050, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Transport.ContextPoolSize)
	assert.Equal(t, uint64(2<<20), cfg.Transport.SendBufferSize.Uint64())
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestValidateRejectsMissingServerAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Address = ""
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Server.Address")
}

func TestValidateRejectsTinyCompoundBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Planner.MaxCompoundOps = 2
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_compound_ops")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
