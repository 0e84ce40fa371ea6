// Package config loads the Clearpath engine configuration.
//
// Precedence (lowest to highest): built-in defaults, an optional
// clearpath.yaml file, a .env file in the working directory, and real
// environment variables. All environment keys use the CLEARPATH_ prefix,
// e.g. CLEARPATH_GROQ_API_KEY.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "clearpath"

// Config holds every recognized option of the engine.
type Config struct {
	// Application
	ProjectName string `yaml:"project_name" envconfig:"PROJECT_NAME"`
	Version     string `yaml:"version" envconfig:"VERSION"`
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// Groq API. The key is required for serving; ingestion-only commands
	// tolerate its absence.
	GroqAPIKey  string `yaml:"groq_api_key" envconfig:"GROQ_API_KEY"`
	GroqBaseURL string `yaml:"groq_base_url" envconfig:"GROQ_BASE_URL"`

	// Embeddings endpoint (OpenAI-compatible server hosting the
	// all-MiniLM-L6-v2 family model).
	EmbeddingsBaseURL string `yaml:"embeddings_base_url" envconfig:"EMBEDDINGS_BASE_URL"`
	EmbeddingsAPIKey  string `yaml:"embeddings_api_key" envconfig:"EMBEDDINGS_API_KEY"`
	EmbeddingModel    string `yaml:"embedding_model" envconfig:"EMBEDDING_MODEL"`

	// File paths
	IndexDir    string `yaml:"index_dir" envconfig:"FAISS_INDEX_PATH"`
	PDFDir      string `yaml:"pdf_dir" envconfig:"PDF_DIR"`
	LogFilePath string `yaml:"log_file_path" envconfig:"LOG_FILE_PATH"`

	// RAG parameters
	ChunkSize           int     `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	ChunkOverlap        int     `yaml:"chunk_overlap" envconfig:"CHUNK_OVERLAP"`
	TopK                int     `yaml:"top_k" envconfig:"TOP_K"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" envconfig:"SIMILARITY_THRESHOLD"`
	EmbeddingDim        int     `yaml:"embedding_dim" envconfig:"EMBEDDING_DIM"`

	// Model IDs per routing class
	SimpleModel  string `yaml:"simple_model" envconfig:"SIMPLE_MODEL"`
	ComplexModel string `yaml:"complex_model" envconfig:"COMPLEX_MODEL"`

	// Rate limiting (enforced by the transport layer)
	RateLimitQueryPerMinute  int `yaml:"rate_limit_query_per_minute" envconfig:"RATE_LIMIT_QUERY_PER_MINUTE"`
	RateLimitIngestPerMinute int `yaml:"rate_limit_ingest_per_minute" envconfig:"RATE_LIMIT_INGEST_PER_MINUTE"`

	// Upload limits
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" envconfig:"MAX_FILE_SIZE_BYTES"`

	// HTTP transport
	ListenAddr     string `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	AllowedOrigins string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`

	// WatchPDFDir enables the fsnotify auto-ingest watcher on PDFDir.
	WatchPDFDir bool `yaml:"watch_pdf_dir" envconfig:"WATCH_PDF_DIR"`
}

// defaults returns the built-in configuration. Applied before the YAML
// file so that file values override them; envconfig then only touches
// fields whose CLEARPATH_* variable is actually set.
func defaults() *Config {
	return &Config{
		ProjectName:              "Clearpath RAG Chatbot",
		Version:                  "1.0.0",
		LogLevel:                 "info",
		GroqBaseURL:              "https://api.groq.com/openai/v1",
		EmbeddingsBaseURL:        "http://localhost:8081/v1",
		EmbeddingModel:           "sentence-transformers/all-MiniLM-L6-v2",
		IndexDir:                 "data/faiss_index",
		PDFDir:                   "data/pdfs",
		LogFilePath:              "data/logs/queries.jsonl",
		ChunkSize:                512,
		ChunkOverlap:             64,
		TopK:                     5,
		SimilarityThreshold:      0.35,
		EmbeddingDim:             384,
		SimpleModel:              "llama-3.1-8b-instant",
		ComplexModel:             "llama-3.3-70b-versatile",
		RateLimitQueryPerMinute:  30,
		RateLimitIngestPerMinute: 5,
		MaxFileSizeBytes:         50 * 1024 * 1024,
		ListenAddr:               "127.0.0.1:8000",
		AllowedOrigins:           "http://localhost:5173",
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first (missing file is fine), then the optional YAML file at
// yamlPath (empty string skips it) is unmarshalled over the built-in
// defaults, then environment variables override everything.
func Load(yamlPath string) (*Config, error) {
	// godotenv only sets keys that are not already in the environment, so
	// real env vars keep priority over .env entries.
	_ = godotenv.Load()

	cfg := defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", yamlPath, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	// No default struct tags: envconfig only overrides fields whose
	// CLEARPATH_* variable is present, so YAML values survive.
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive, got %d", c.MaxFileSizeBytes)
	}
	return nil
}

// Origins returns AllowedOrigins parsed as a list. Accepts a comma
// separated string; surrounding whitespace is trimmed, empty entries are
// dropped.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
