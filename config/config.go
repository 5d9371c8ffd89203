package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Search     SearchConfig
	Vision     VisionConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Trust      TrustConfig
	Thresholds ThresholdConfig
	Matching   MatchingConfig
	Batch      BatchConfig
	Image      ImageConfig
	Output     OutputConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SearchConfig holds external image search API configuration
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Country    string `mapstructure:"country"` // gl parameter, e.g. "za"
	MaxResults int    `mapstructure:"max_results"`
}

// VisionConfig holds the inference service (embedding + OCR) configuration
type VisionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds Postgres connection details
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// CacheConfig holds search cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TrustConfig holds source trust table tuning
type TrustConfig struct {
	Step float64 `mapstructure:"step"` // score nudge per recorded outcome
}

// ThresholdConfig holds the three confidence bands. auto_reject must be
// strictly below auto_approve; manual_review is the floor of the middle band.
type ThresholdConfig struct {
	AutoApprove  float64 `mapstructure:"auto_approve"`
	ManualReview float64 `mapstructure:"manual_review"`
	AutoReject   float64 `mapstructure:"auto_reject"`
}

// MatchingConfig holds candidate evaluation switches
type MatchingConfig struct {
	StrictVariant        bool    `mapstructure:"strict_variant"`
	RequireBrandOCR      bool    `mapstructure:"require_brand_ocr"`
	SizeTolerancePercent float64 `mapstructure:"size_tolerance_percent"`
	EnableDebugLogging   bool    `mapstructure:"enable_debug_logging"`
}

// BatchConfig holds batch orchestration settings
type BatchConfig struct {
	ConcurrencyLimit int `mapstructure:"concurrency_limit"`
}

// ImageConfig holds stored-artifact constraints
type ImageConfig struct {
	MaxDimension int `mapstructure:"max_dimension"`
	MaxSizeKB    int `mapstructure:"max_size_kb"`
}

// OutputConfig holds disposition storage settings
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shelfpix/")

	v.SetEnvPrefix("SHELFPIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything else
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("search.base_url", "https://serpapi.com")
	v.SetDefault("search.country", "za")
	v.SetDefault("search.max_results", 10)

	v.SetDefault("vision.base_url", "http://localhost:8501")
	v.SetDefault("vision.timeout", "30s")

	v.SetDefault("cache.ttl", "168h") // 7 days

	v.SetDefault("trust.step", 0.05)

	v.SetDefault("thresholds.auto_approve", 0.60)
	v.SetDefault("thresholds.manual_review", 0.30)
	v.SetDefault("thresholds.auto_reject", 0.30)

	v.SetDefault("matching.strict_variant", true)
	v.SetDefault("matching.require_brand_ocr", false)
	v.SetDefault("matching.size_tolerance_percent", 10.0)

	v.SetDefault("batch.concurrency_limit", 4)

	v.SetDefault("image.max_dimension", 1000)
	v.SetDefault("image.max_size_kb", 200)

	v.SetDefault("output.base_dir", "output")
}

// validate validates the configuration. Threshold ordering violations are
// fatal: no run may begin with overlapping confidence bands.
func validate(config *Config) error {
	if config.Search.APIKey == "" {
		return fmt.Errorf("search API key is required (set SHELFPIX_SEARCH_API_KEY)")
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set SHELFPIX_DATABASE_DSN)")
	}

	t := config.Thresholds
	if t.AutoReject < 0 || t.AutoApprove > 1 {
		return fmt.Errorf("thresholds must lie in [0,1], got reject=%.2f approve=%.2f", t.AutoReject, t.AutoApprove)
	}
	if t.AutoReject >= t.AutoApprove {
		return fmt.Errorf("auto_reject threshold (%.2f) must be strictly below auto_approve (%.2f)", t.AutoReject, t.AutoApprove)
	}
	if t.ManualReview < t.AutoReject || t.ManualReview >= t.AutoApprove {
		return fmt.Errorf("manual_review threshold (%.2f) must lie in [auto_reject, auto_approve)", t.ManualReview)
	}

	if config.Matching.SizeTolerancePercent < 0 {
		return fmt.Errorf("size_tolerance_percent must be non-negative")
	}

	if config.Batch.ConcurrencyLimit < 1 {
		return fmt.Errorf("batch concurrency_limit must be at least 1")
	}

	if config.Trust.Step <= 0 || config.Trust.Step > 0.5 {
		return fmt.Errorf("trust step must be in (0, 0.5], got %.2f", config.Trust.Step)
	}

	if config.Image.MaxDimension < 100 || config.Image.MaxSizeKB < 10 {
		return fmt.Errorf("image constraints too small: max_dimension=%d max_size_kb=%d", config.Image.MaxDimension, config.Image.MaxSizeKB)
	}

	return nil
}
