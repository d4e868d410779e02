// Package config maps environment variables onto the application
// configuration. Only this struct should be consulted for settings; no other
// package reads the environment directly.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	GeminiTimeout time.Duration `env:"GEMINI_TIMEOUT,default=30s"`

	// When set, transactions persist to BigQuery; otherwise the in-memory
	// store backs the service.
	BigQueryProject string `env:"BIGQUERY_PROJECT"`
	BigQueryDataset string `env:"BIGQUERY_DATASET,default=ledger"`
	BigQueryTable   string `env:"BIGQUERY_TABLE,default=transactions"`

	// When set, ingested receipts and raw model replies are archived here.
	ArchiveBucket string `env:"ARCHIVE_BUCKET"`
}

// Load reads an optional dotenv file, then the process environment.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("Load: reading env file %q: %w", path, err)
		}
	}

	var c Config
	if _, err := env.UnmarshalFromEnviron(&c); err != nil {
		return nil, fmt.Errorf("Load: mapping environment: %w", err)
	}

	return &c, nil
}
