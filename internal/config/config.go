package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/dgallion1/docindex/internal/chunker"
)

const (
	BackendChromem = "chromem"
	BackendSearch  = "search"
)

type Config struct {
	// Input
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	MaxFileBytes int64  `env:"MAX_FILE_BYTES" envDefault:"52428800"` // 50MB

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT" envDefault:"4"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"100"`

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`

	// Chunking
	MaxSectionLength    int `env:"MAX_SECTION_LENGTH" envDefault:"1000"`
	SentenceSearchLimit int `env:"SENTENCE_SEARCH_LIMIT" envDefault:"100"`
	SectionOverlap      int `env:"SECTION_OVERLAP" envDefault:"100"`

	// Index sink
	IndexBackend   string `env:"INDEX_BACKEND" envDefault:"chromem"`
	IndexBatchSize int    `env:"INDEX_BATCH_SIZE" envDefault:"1000"`
	IndexCategory  string `env:"INDEX_CATEGORY"`

	// Local vector store
	ChromemPath       string `env:"CHROMEM_PATH" envDefault:"./index/sections.gob"`
	ChromemCollection string `env:"CHROMEM_COLLECTION" envDefault:"sections"`

	// Embeddings for the local store
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"ollama"`
	OllamaURL         string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbedModel  string `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIEmbedModel  string `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`

	// Hosted search index
	SearchEndpoint   string `env:"SEARCH_ENDPOINT"`
	SearchAPIKey     string `env:"SEARCH_API_KEY"`
	SearchIndex      string `env:"SEARCH_INDEX" envDefault:"gptkbindex"`
	SearchAPIVersion string `env:"SEARCH_API_VERSION" envDefault:"2023-11-01"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 52428800
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.IndexBatchSize <= 0 {
		c.IndexBatchSize = 1000
	}
	c.IndexBackend = strings.ToLower(strings.TrimSpace(c.IndexBackend))
}

// Chunker returns the chunking parameters. Non-positive values fall back to
// chunker defaults.
func (c Config) Chunker() chunker.Config {
	return chunker.Config{
		MaxSectionLength:    c.MaxSectionLength,
		SentenceSearchLimit: c.SentenceSearchLimit,
		SectionOverlap:      c.SectionOverlap,
	}.WithDefaults()
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if err := c.Chunker().Validate(); err != nil {
		return err
	}
	switch c.IndexBackend {
	case BackendChromem:
		if c.ChromemCollection == "" {
			return fmt.Errorf("CHROMEM_COLLECTION is required")
		}
		if strings.EqualFold(c.EmbeddingProvider, "openai") && c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai embeddings")
		}
	case BackendSearch:
		if c.SearchEndpoint == "" {
			return fmt.Errorf("SEARCH_ENDPOINT is required")
		}
		if c.SearchAPIKey == "" {
			return fmt.Errorf("SEARCH_API_KEY is required")
		}
		if c.SearchIndex == "" {
			return fmt.Errorf("SEARCH_INDEX is required")
		}
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q (want %s or %s)", c.IndexBackend, BackendChromem, BackendSearch)
	}
	return nil
}
