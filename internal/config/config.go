package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_STORAGE_BACKEND.
const EnvPrefix = "LEDGER"

//go:embed defaults.yaml
var defaultConfigYAML []byte

// Storage backends.
const (
	BackendFile     = "file"
	BackendGCS      = "gcs"
	BackendBigQuery = "bigquery"
	BackendMemory   = "memory"
)

type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Proposals ProposalsConfig `mapstructure:"proposals"`
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Log       LogConfig       `mapstructure:"log"`
}

type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	FilePath string         `mapstructure:"file_path"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

type BigQueryConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

type LedgerConfig struct {
	DefaultCurrency string `mapstructure:"default_currency"`
	MaxBatchSize    int    `mapstructure:"max_batch_size"`
}

type ProposalsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Port   string `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

type GeminiConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load resolves configuration from the built-in defaults, then the optional
// YAML file at path, then LEDGER_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(defaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("config: read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Ledger.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.Ledger.DefaultCurrency))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.FilePath == "" {
			errs = append(errs, errors.New("storage.file_path is required for the file backend"))
		}
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" || c.Storage.GCS.Object == "" {
			errs = append(errs, errors.New("storage.gcs.bucket and storage.gcs.object are required for the gcs backend"))
		}
	case BackendBigQuery:
		bq := c.Storage.BigQuery
		if bq.Project == "" || bq.Dataset == "" || bq.Table == "" {
			errs = append(errs, errors.New("storage.bigquery.project, dataset and table are required for the bigquery backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Ledger.DefaultCurrency == "" {
		errs = append(errs, errors.New("ledger.default_currency is required"))
	}
	if c.Ledger.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ledger.max_batch_size must be positive, got %d", c.Ledger.MaxBatchSize))
	}
	if c.Proposals.TTL <= 0 {
		errs = append(errs, fmt.Errorf("proposals.ttl must be positive, got %s", c.Proposals.TTL))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
