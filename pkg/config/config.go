package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Server       ServerConfig
	Diarizer     DiarizerConfig
	Summary      SummaryConfig
	Store        VectorStoreConfig
	SingleFlight SingleFlightConfig
	Mirror       MirrorConfig
	Worker       WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// DiarizerConfig holds the transcription+diarization provider configuration.
type DiarizerConfig struct {
	APIKey        string        `envconfig:"ASSEMBLYAI_API_KEY"`
	BaseURL       string        `envconfig:"ASSEMBLYAI_API_URL" default:"https://api.assemblyai.com"`
	WebhookSecret string        `envconfig:"ASSEMBLYAI_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"DIARIZER_TIMEOUT" default:"5m"`
}

// SummaryConfig holds the structured-summary provider configuration.
type SummaryConfig struct {
	APIKey  string        `envconfig:"SUMMARY_API_KEY"`
	BaseURL string        `envconfig:"SUMMARY_API_URL" default:"https://api.groq.com"`
	Model   string        `envconfig:"SUMMARY_MODEL" default:"llama-3.1-70b-versatile"`
	Timeout time.Duration `envconfig:"SUMMARY_TIMEOUT" default:"60s"`
}

// VectorStoreConfig holds the object-storage-backed vector index configuration.
type VectorStoreConfig struct {
	Endpoint        string `envconfig:"VECTOR_STORE_ENDPOINT"`
	AccessKeyID     string `envconfig:"VECTOR_STORE_ACCESS_KEY"`
	SecretAccessKey string `envconfig:"VECTOR_STORE_SECRET_KEY"`
	BucketName      string `envconfig:"VECTOR_STORE_BUCKET" default:"voiceprints"`
	UseSSL          bool   `envconfig:"VECTOR_STORE_USE_SSL" default:"false"`
}

// SingleFlightConfig holds the per-device lock backend configuration. When
// RedisAddr is empty, the in-process fallback lock is used instead.
type SingleFlightConfig struct {
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// MirrorConfig holds the local voiceprint mirror file configuration.
type MirrorConfig struct {
	Path string `envconfig:"VOICEPRINT_MIRROR_PATH" default:"./data/voiceprints_mirror.json"`
}

// WorkerConfig holds the bounded worker-pool sizing for pipeline stages.
type WorkerConfig struct {
	PoolSize int `envconfig:"WORKER_POOL_SIZE" default:"8"`
}

// Load loads configuration from environment variables, then validates it.
// A missing required variable aborts initialization.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every variable required for the server to do useful
// work is present. It does not open any sockets or connections itself.
func (c *Config) Validate() error {
	if c.Diarizer.APIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required")
	}
	if c.Summary.APIKey == "" {
		return fmt.Errorf("SUMMARY_API_KEY is required")
	}
	if c.Store.Endpoint == "" {
		return fmt.Errorf("VECTOR_STORE_ENDPOINT is required")
	}
	if c.Store.AccessKeyID == "" || c.Store.SecretAccessKey == "" {
		return fmt.Errorf("VECTOR_STORE_ACCESS_KEY and VECTOR_STORE_SECRET_KEY are required")
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}
	return nil
}

