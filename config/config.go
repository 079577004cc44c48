// Package config loads the YAML configuration shared by the ingestion
// pipeline and the retrieval server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/voxdex/core"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides DefaultPath.
const EnvConfigPath = "VOXDEX_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath names a file.
const DefaultPath = "config/voxdex.yaml"

// ChunkingConfig configures token windows.
type ChunkingConfig struct {
	SizeTokens    int    `yaml:"size_tokens"`
	OverlapTokens int    `yaml:"overlap_tokens"`
	Encoding      string `yaml:"encoding"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Host              string        `yaml:"host"`
	Model             string        `yaml:"model"`
	BatchSize         int           `yaml:"batch_size"`
	MaxWorkers        int           `yaml:"max_workers"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// EnrichmentConfig configures document and chunk enrichment.
type EnrichmentConfig struct {
	Host              string  `yaml:"host"`
	Model             string  `yaml:"model"`
	MaxWorkers        int     `yaml:"max_workers"`
	ChunkMaxWorkers   int     `yaml:"chunk_max_workers"`
	MaxAttempts       int     `yaml:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	ClipTokens        int     `yaml:"clip_tokens"`
	CacheBackend      string  `yaml:"cache_backend"`
}

// StorageConfig locates inputs and persisted artifacts.
type StorageConfig struct {
	TranscriptsDir string `yaml:"transcripts_dir"`
	MetadataDir    string `yaml:"metadata_dir"`
	ArtifactsDir   string `yaml:"artifacts_dir"`
	IndexDir       string `yaml:"index_dir"`
	VectorBackend  string `yaml:"vector_backend"`
	QdrantAddr     string `yaml:"qdrant_addr"`
	QdrantPrefix   string `yaml:"qdrant_prefix"`
}

// LoggingConfig locates the JSONL logs written by ingestion.
type LoggingConfig struct {
	Level                string `yaml:"level"`
	SummariesPath        string `yaml:"summaries_path"`
	AuditPath            string `yaml:"audit_path"`
	EnrichmentErrorsPath string `yaml:"enrichment_errors_path"`
}

// RetrievalConfig configures the orchestrator.
type RetrievalConfig struct {
	TopK            int                              `yaml:"top_k"`
	QueryTimeout    time.Duration                    `yaml:"query_timeout"`
	FallbackProfile string                           `yaml:"fallback_profile"`
	RecencyWeight   float64                          `yaml:"recency_weight"`
	MaxSupporting   int                              `yaml:"max_supporting"`
	ExpansionCount  int                              `yaml:"expansion_count"`
	Profiles        map[string]core.RetrievalProfile `yaml:"profiles"`
}

// ModelsConfig names the chat models used at query time.
type ModelsConfig struct {
	Host        string `yaml:"host"`
	Classifier  string `yaml:"classifier"`
	Synthesizer string `yaml:"synthesizer"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NormalizerConfig configures speaker label canonicalization.
type NormalizerConfig struct {
	// Aliases maps a lowercased speaker label to its canonical form.
	Aliases map[string]string `yaml:"aliases"`
}

// Config is the root configuration. It is loaded once and passed by
// reference; nothing mutates it after Load returns.
type Config struct {
	ConfigVersion int              `yaml:"config_version"`
	Chunking      ChunkingConfig   `yaml:"chunking"`
	Embedding     EmbeddingConfig  `yaml:"embedding"`
	Enrichment    EnrichmentConfig `yaml:"enrichment"`
	Storage       StorageConfig    `yaml:"storage"`
	Logging       LoggingConfig    `yaml:"logging"`
	Retrieval     RetrievalConfig  `yaml:"retrieval"`
	Models        ModelsConfig     `yaml:"models"`
	Server        ServerConfig     `yaml:"server"`
	Normalizer    NormalizerConfig `yaml:"normalizer"`

	path string
}

// ResolvePath picks the config file to load: explicit, then EnvConfigPath,
// then DefaultPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads, defaults, resolves and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file %s does not exist", core.ErrValidation, path)
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.path = abs
	cfg.resolvePaths(filepath.Dir(abs))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. Paths are left as written.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid config: %v", core.ErrValidation, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns a Config with every optional field populated.
func Default() *Config {
	return &Config{
		ConfigVersion: 1,
		Chunking:      ChunkingConfig{SizeTokens: 400, OverlapTokens: 60, Encoding: "cl100k_base"},
		Embedding: EmbeddingConfig{
			Host:              "https://api.openai.com/v1",
			Model:             "text-embedding-3-small",
			BatchSize:         64,
			MaxWorkers:        4,
			MaxRetries:        6,
			RetryDelay:        time.Second,
			MaxRetryDelay:     60 * time.Second,
			RequestsPerSecond: 5,
		},
		Enrichment: EnrichmentConfig{
			Host:              "https://api.openai.com/v1",
			Model:             core.EnrichmentModel,
			MaxWorkers:        8,
			MaxAttempts:       3,
			RequestsPerSecond: 5,
			ClipTokens:        800,
			CacheBackend:      "file",
		},
		Storage: StorageConfig{
			TranscriptsDir: "data/transcripts",
			MetadataDir:    "data/metadata",
			ArtifactsDir:   "data/artifacts",
			IndexDir:       "data/index",
			VectorBackend:  "badger",
			QdrantAddr:     "localhost:6334",
			QdrantPrefix:   "voxdex",
		},
		Logging: LoggingConfig{
			Level:                "info",
			SummariesPath:        "logs/ingestion_runs.jsonl",
			AuditPath:            "logs/corpus_audit.jsonl",
			EnrichmentErrorsPath: "logs/enrichment_errors.jsonl",
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			QueryTimeout:    20 * time.Second,
			FallbackProfile: string(core.QuestionFactual),
			RecencyWeight:   0.05,
			MaxSupporting:   3,
			ExpansionCount:  3,
		},
		Models: ModelsConfig{
			Host:        "https://api.openai.com/v1",
			Classifier:  "gpt-4.1-mini",
			Synthesizer: "gpt-4.1",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Server: ServerConfig{Addr: ":8000"},
		Normalizer: NormalizerConfig{
			Aliases: map[string]string{
				"sam":        "Sam Altman",
				"sam altman": "Sam Altman",
				"s. altman":  "Sam Altman",
			},
		},
	}
}

// applyDefaults fills values an explicit zero in the file would otherwise
// leave unusable.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Chunking.Encoding == "" {
		cfg.Chunking.Encoding = def.Chunking.Encoding
	}
	if cfg.Enrichment.ChunkMaxWorkers == 0 {
		cfg.Enrichment.ChunkMaxWorkers = cfg.Enrichment.MaxWorkers
	}
	if cfg.Enrichment.CacheBackend == "" {
		cfg.Enrichment.CacheBackend = def.Enrichment.CacheBackend
	}
	if cfg.Enrichment.ClipTokens == 0 {
		cfg.Enrichment.ClipTokens = def.Enrichment.ClipTokens
	}
	if cfg.Storage.VectorBackend == "" {
		cfg.Storage.VectorBackend = def.Storage.VectorBackend
	}
	if cfg.Retrieval.MaxSupporting == 0 {
		cfg.Retrieval.MaxSupporting = def.Retrieval.MaxSupporting
	}
	if cfg.Models.APIKeyEnv == "" {
		cfg.Models.APIKeyEnv = def.Models.APIKeyEnv
	}
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p *string) {
		if *p == "" || filepath.IsAbs(*p) {
			return
		}
		*p = filepath.Join(base, *p)
	}
	resolve(&c.Storage.TranscriptsDir)
	resolve(&c.Storage.MetadataDir)
	resolve(&c.Storage.ArtifactsDir)
	resolve(&c.Storage.IndexDir)
	resolve(&c.Logging.SummariesPath)
	resolve(&c.Logging.AuditPath)
	resolve(&c.Logging.EnrichmentErrorsPath)
}

// Path returns the absolute path of the loaded file, or "" for a parsed config.
func (c *Config) Path() string {
	return c.path
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if c.Chunking.SizeTokens <= 0 {
		add("chunking.size_tokens must be > 0")
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.SizeTokens {
		add("chunking.overlap_tokens must be in [0, size_tokens)")
	}
	if c.Embedding.Model == "" {
		add("embedding.model is required")
	}
	if c.Embedding.BatchSize <= 0 {
		add("embedding.batch_size must be > 0")
	}
	if c.Embedding.MaxRetries <= 0 {
		add("embedding.max_retries must be > 0")
	}
	if c.Enrichment.MaxWorkers < 1 || c.Enrichment.MaxWorkers > 64 {
		add("enrichment.max_workers must be in [1, 64]")
	}
	if c.Enrichment.MaxAttempts <= 0 {
		add("enrichment.max_attempts must be > 0")
	}
	switch c.Enrichment.CacheBackend {
	case "file", "badger":
	default:
		add("enrichment.cache_backend must be file or badger")
	}
	for name, p := range map[string]string{
		"storage.transcripts_dir": c.Storage.TranscriptsDir,
		"storage.metadata_dir":    c.Storage.MetadataDir,
		"storage.artifacts_dir":   c.Storage.ArtifactsDir,
		"storage.index_dir":       c.Storage.IndexDir,
		"logging.summaries_path":  c.Logging.SummariesPath,
	} {
		if strings.TrimSpace(p) == "" {
			add("%s is required", name)
		}
	}
	switch c.Storage.VectorBackend {
	case "badger":
	case "qdrant":
		if c.Storage.QdrantAddr == "" {
			add("storage.qdrant_addr is required for the qdrant backend")
		}
	default:
		add("storage.vector_backend must be badger or qdrant")
	}
	if c.Retrieval.TopK <= 0 {
		add("retrieval.top_k must be > 0")
	}
	if c.Retrieval.QueryTimeout <= 0 {
		add("retrieval.query_timeout must be > 0")
	}
	if _, err := c.Profiles(); err != nil {
		add("%v", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Profiles returns the built-in retrieval profiles overridden by any
// configured under retrieval.profiles, keyed by question type.
func (c *Config) Profiles() (map[core.QuestionType]core.RetrievalProfile, error) {
	profiles := core.DefaultProfiles()
	for name, p := range c.Retrieval.Profiles {
		qt, err := core.ParseQuestionType(name)
		if err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = string(qt)
		}
		if p.TopK == 0 {
			p.TopK = c.Retrieval.TopK
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[qt] = p
	}
	if _, err := core.ParseQuestionType(c.Retrieval.FallbackProfile); err != nil {
		return nil, fmt.Errorf("retrieval.fallback_profile: %w", err)
	}
	return profiles, nil
}

// APIKey returns the API key from the configured environment variable, or
// "none" for local OpenAI-compatible servers that do not authenticate.
func (c *Config) APIKey() string {
	if key := os.Getenv(c.Models.APIKeyEnv); key != "" {
		return key
	}
	return "none"
}

// ChunkManifestPath is where the chunk manifest is written.
func (c *Config) ChunkManifestPath() string {
	return filepath.Join(c.Storage.ArtifactsDir, "chunks.json")
}

// DocumentManifestPath is where the enriched document manifest is written.
func (c *Config) DocumentManifestPath() string {
	return filepath.Join(c.Storage.ArtifactsDir, "documents.json")
}

// EmbeddingArtifactPath is where embeddings of one source field are written.
func (c *Config) EmbeddingArtifactPath(field core.SourceField) string {
	return filepath.Join(c.Storage.ArtifactsDir, "embeddings", string(field)+".jsonl")
}

// EnrichmentCacheDir is the root of the enrichment cache.
func (c *Config) EnrichmentCacheDir() string {
	return filepath.Join(c.Storage.ArtifactsDir, "enrichment")
}

// EnsureDirs creates every directory ingestion writes into.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.Storage.ArtifactsDir,
		c.Storage.IndexDir,
		filepath.Join(c.Storage.ArtifactsDir, "embeddings"),
		c.EnrichmentCacheDir(),
		filepath.Dir(c.Logging.SummariesPath),
		filepath.Dir(c.Logging.AuditPath),
		filepath.Dir(c.Logging.EnrichmentErrorsPath),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ChunkingFingerprint identifies the chunking settings; chunk ids are stable
// only while it is unchanged.
func (c *Config) ChunkingFingerprint() string {
	return fmt.Sprintf("%s/%d/%d", c.Chunking.Encoding, c.Chunking.SizeTokens, c.Chunking.OverlapTokens)
}
