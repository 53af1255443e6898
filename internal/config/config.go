package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Index backend identifiers.
const (
	IndexBackendFile     = "file"
	IndexBackendPostgres = "postgres"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	// LLMTimeout bounds a single completion call; expiry surfaces as an
	// LLM invocation error instead of blocking a synthesis run.
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"90s"`

	// IndexBackend selects where corpus embeddings persist: "file" keeps a
	// JSON artifact at IndexPath, "postgres" keeps them in corpus_chunks.
	IndexBackend string `envconfig:"INDEX_BACKEND" default:"file"`
	IndexPath    string `envconfig:"INDEX_PATH" default:"data/corpus.index.json"`
	IndexName    string `envconfig:"INDEX_NAME" default:"corpus"`
	CorpusDir    string `envconfig:"CORPUS_DIR" default:"documents"`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"upload"`
	ReportDir string `envconfig:"REPORT_DIR" default:"report"`

	// ChatHistoryLimit caps session history entries (2 entries per turn).
	ChatHistoryLimit int `envconfig:"CHAT_HISTORY_LIMIT" default:"4"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"creditlens-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CREDITLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.IndexBackend != IndexBackendFile && cfg.IndexBackend != IndexBackendPostgres {
		return nil, fmt.Errorf("invalid index backend %q (expected %q or %q)",
			cfg.IndexBackend, IndexBackendFile, IndexBackendPostgres)
	}

	if cfg.ChatHistoryLimit <= 0 {
		return nil, fmt.Errorf("chat history limit must be positive, got %d", cfg.ChatHistoryLimit)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
