package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Import.ChunkSize)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Import.ChunkSize)
	assert.Equal(t, 60, cfg.Cache.TreeTTLSeconds)
}

func TestPortOverride(t *testing.T) {
	port, err := PortOverride("", 8080)
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	port, err = PortOverride("9090", 8080)
	require.NoError(t, err)
	assert.Equal(t, 9090, port)
}

func TestPortOverrideRejectsMalformedValues(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0", "70000", "80x"} {
		_, err := PortOverride(raw, 8080)
		assert.Error(t, err, raw)
	}
}
