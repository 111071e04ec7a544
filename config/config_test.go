package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
iterations: 100
warmup: 10
threads: 4
processing_threads: 2
files:
  10MB: 2
  1KB: 3
temp: /tmp/ocflbench
storage:
  backend: s3
  bucket: bench
  region: us-east-2
  path_style: true
`), 0o644))

	rf, err := LoadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rf.Iterations)
	assert.Equal(t, int64(10), rf.Warmup)
	assert.Equal(t, 4, rf.Threads)
	assert.Equal(t, 2, rf.ProcessingThreads)
	assert.Equal(t, map[string]int{"10MB": 2, "1KB": 3}, rf.Files)
	assert.Equal(t, "s3", rf.Storage.Backend)
	assert.Equal(t, "bench", rf.Storage.Bucket)
	assert.True(t, rf.Storage.PathStyle)
}

func TestLoadRunFile_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iteration: 5\n"), 0o644))

	_, err := LoadRunFile(path)
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/.oci/config")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".oci/config"), got)

	got, err = ExpandHome("/etc/config")
	require.NoError(t, err)
	assert.Equal(t, "/etc/config", got)
}

func TestLoadOCIConfig_MissingFile(t *testing.T) {
	_, err := LoadOCIConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
