package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Secret-resolution modes. In "kms" mode the sensitive variables hold base64
// KMS ciphertext and are decrypted once at startup; "plain" reads them verbatim.
const (
	SecretsModePlain = "plain"
	SecretsModeKMS   = "kms"
)

// Supported seen-set storage backends.
const (
	StorageS3    = "s3"
	StorageBBolt = "bbolt"
)

// Config holds the application configuration loaded from files and environment
// variables. It is constructed once in main and passed into the runtime; no
// other code reads the environment.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	Env         string `mapstructure:"app_env"`
	LogLevel    string `mapstructure:"log_level"`
	SecretsMode string `mapstructure:"secrets_mode"`

	ArchiveBaseURL  string `mapstructure:"as_baseurl"`
	ArchiveUsername string `mapstructure:"as_username"`
	ArchivePassword string `mapstructure:"as_password"`
	PageSize        int    `mapstructure:"page_size"`

	CartographerBaseURL string `mapstructure:"cartographer_baseurl"`

	DiscoveryBaseURL string `mapstructure:"discovery_baseurl"`

	TeamsURL  string `mapstructure:"teams_url"`
	SinksFile string `mapstructure:"sinks_file"`

	StorageType string `mapstructure:"storage_type"`
	BucketName  string `mapstructure:"bucket_name"`
	SeenKey     string `mapstructure:"seen_key"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	AWSRegion       string `mapstructure:"aws_region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "collection-notifier")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("secrets_mode", SecretsModePlain)
	v.SetDefault("page_size", 200)
	v.SetDefault("storage_type", StorageS3)
	v.SetDefault("seen_key", "results.json")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("sinks_file", "")
	v.SetDefault("http_timeout_seconds", 30)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SecretsMode = strings.ToLower(strings.TrimSpace(cfg.SecretsMode))
	switch cfg.SecretsMode {
	case SecretsModePlain, SecretsModeKMS:
	default:
		return nil, fmt.Errorf("invalid secrets_mode %q (expected plain or kms)", cfg.SecretsMode)
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid page_size (must be positive)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	return &cfg, nil
}

// Validate checks the fields the pipeline needs after secrets have been
// resolved. Kept separate from Load because in kms mode the URL fields are
// ciphertext until ResolveSecrets runs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ArchiveBaseURL) == "" {
		return fmt.Errorf("as_baseurl is required")
	}
	if strings.TrimSpace(c.ArchiveUsername) == "" {
		return fmt.Errorf("as_username is required")
	}
	if strings.TrimSpace(c.CartographerBaseURL) == "" {
		return fmt.Errorf("cartographer_baseurl is required")
	}
	if strings.TrimSpace(c.DiscoveryBaseURL) == "" {
		return fmt.Errorf("discovery_baseurl is required")
	}
	if strings.TrimSpace(c.TeamsURL) == "" && strings.TrimSpace(c.SinksFile) == "" {
		return fmt.Errorf("either teams_url or sinks_file must be configured")
	}

	switch strings.ToLower(strings.TrimSpace(c.StorageType)) {
	case StorageS3:
		if strings.TrimSpace(c.BucketName) == "" {
			return fmt.Errorf("bucket_name is required for s3 storage")
		}
	case StorageBBolt:
		if strings.TrimSpace(c.BBoltPath) == "" {
			return fmt.Errorf("bbolt_path is required for bbolt storage")
		}
	default:
		return fmt.Errorf("unsupported storage_type %q", c.StorageType)
	}
	if strings.TrimSpace(c.SeenKey) == "" {
		return fmt.Errorf("seen_key must not be empty")
	}
	return nil
}
