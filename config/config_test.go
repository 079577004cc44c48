package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/voxdex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
chunking:
  size_tokens: 200
  overlap_tokens: 20
embedding:
  model: text-embedding-3-small
  batch_size: 2
  retry_delay: 250ms
storage:
  transcripts_dir: corpus/transcripts
  metadata_dir: corpus/metadata
  artifacts_dir: out/artifacts
  index_dir: out/index
logging:
  summaries_path: out/runs.jsonl
retrieval:
  top_k: 7
  query_timeout: 5s
  profiles:
    factual:
      collections:
        - name: primary
          top_k: 3
      top_k: 3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "voxdex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	base := filepath.Dir(path)
	assert.Equal(t, 200, cfg.Chunking.SizeTokens)
	assert.Equal(t, 20, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "cl100k_base", cfg.Chunking.Encoding)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.Retrieval.QueryTimeout)
	assert.Equal(t, filepath.Join(base, "corpus/transcripts"), cfg.Storage.TranscriptsDir)
	assert.Equal(t, filepath.Join(base, "out/runs.jsonl"), cfg.Logging.SummariesPath)
	assert.Equal(t, filepath.Join(base, "out/artifacts", "chunks.json"), cfg.ChunkManifestPath())
	assert.Equal(t, cfg.Enrichment.MaxWorkers, cfg.Enrichment.ChunkMaxWorkers)
	assert.Equal(t, path, cfg.Path())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.SizeTokens = 0 }},
		{"overlap not below size", func(c *Config) { c.Chunking.OverlapTokens = c.Chunking.SizeTokens }},
		{"no embedding model", func(c *Config) { c.Embedding.Model = "" }},
		{"too many workers", func(c *Config) { c.Enrichment.MaxWorkers = 65 }},
		{"unknown cache backend", func(c *Config) { c.Enrichment.CacheBackend = "redis" }},
		{"unknown vector backend", func(c *Config) { c.Storage.VectorBackend = "chroma" }},
		{"qdrant without addr", func(c *Config) {
			c.Storage.VectorBackend = "qdrant"
			c.Storage.QdrantAddr = ""
		}},
		{"missing transcripts dir", func(c *Config) { c.Storage.TranscriptsDir = " " }},
		{"bad fallback profile", func(c *Config) { c.Retrieval.FallbackProfile = "poetic" }},
		{"bad profile name", func(c *Config) {
			c.Retrieval.Profiles = map[string]core.RetrievalProfile{"poetic": {}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})
}

func TestProfilesOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	profiles, err := cfg.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, len(core.QuestionTypes))

	factual := profiles[core.QuestionFactual]
	assert.Equal(t, "factual", factual.Name)
	assert.Equal(t, 3, factual.TopK)
	require.Len(t, factual.Collections, 1)
	assert.Equal(t, core.CollectionPrimary, factual.Collections[0].Name)

	analytical := profiles[core.QuestionAnalytical]
	assert.Equal(t, 20, analytical.TopK)
	assert.True(t, analytical.ExpandQueries)
}

func TestProfileTopKDefaultsToRetrievalTopK(t *testing.T) {
	cfg, err := Parse([]byte(`
retrieval:
  top_k: 7
  profiles:
    exploratory:
      collections:
        - name: summary
          top_k: 10
`))
	require.NoError(t, err)

	profiles, err := cfg.Profiles()
	require.NoError(t, err)
	assert.Equal(t, 7, profiles[core.QuestionExploratory].TopK)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))

	t.Setenv(EnvConfigPath, "/etc/voxdex.yaml")
	assert.Equal(t, "/etc/voxdex.yaml", ResolvePath(""))
	assert.Equal(t, "x.yaml", ResolvePath("x.yaml"))
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	t.Setenv("OPENAI_API_KEY", "")
	assert.Equal(t, "none", cfg.APIKey())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	assert.Equal(t, "sk-test", cfg.APIKey())
}
