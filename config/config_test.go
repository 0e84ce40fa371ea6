package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 64, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.InDelta(t, 0.35, cfg.SimilarityThreshold, 1e-9)
	assert.Equal(t, 384, cfg.EmbeddingDim)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.SimpleModel)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.ComplexModel)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxFileSizeBytes)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clearpath.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 7\nsimple_model: from-yaml\n"), 0o644))

	t.Setenv("CLEARPATH_SIMPLE_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.TopK, "yaml value survives when no env override exists")
	assert.Equal(t, "from-env", cfg.SimpleModel, "env wins over yaml")
}

func TestMissingYAMLFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.ChunkSize)
}

func TestValidateRejectsBadOverlap(t *testing.T) {
	t.Setenv("CLEARPATH_CHUNK_OVERLAP", "512")
	_, err := Load("")
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://a.example, http://b.example ,,"}
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
}
