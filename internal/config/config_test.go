package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "huggingface", c.InsightProvider)
	assert.Equal(t, 30, c.InsightTimeoutSec)
	assert.Equal(t, 500, c.MaxTokens)
	assert.Equal(t, "file", c.StoreDriver)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, ":8000", c.ListenAddr)
	assert.NotEmpty(t, c.DataDir)
	assert.NotEmpty(t, c.UploadDir)
}

func TestSaveLoadAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		InsightProvider: "ollama",
		InsightModel:    "llama3.1:8b",
		StoreDriver:     "sqlite",
		StoreDSN:        "jobs.db",
		Workers:         4,
		DataDir:         "/tmp/jobs",
		UploadDir:       "/tmp/uploads",
	}
	require.NoError(t, Save(in, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv("ANALYTIQ_WORKERS", "7")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.InsightProvider)
	assert.Equal(t, "sqlite", c.StoreDriver)
	assert.Equal(t, "/tmp/jobs", c.DataDir)
	assert.Equal(t, 7, c.Workers)
}
