// Package config provides configuration loading and structs for the mindcast classifier.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/mindcast/internal/taxonomy"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Encoder    EncoderConfig    `yaml:"encoder"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Cache backends for embedding indexes.
const (
	CacheBackendDisk   = "disk"
	CacheBackendSQLite = "sqlite"
)

// StorageConfig holds taxonomy, index cache and database locations.
type StorageConfig struct {
	TaxonomyDir  string `yaml:"taxonomy_dir"`
	CacheDir     string `yaml:"cache_dir"`
	CacheBackend string `yaml:"cache_backend"`
	DatabasePath string `yaml:"database_path"`
}

// Encoder backends.
const (
	EncoderBackendONNX = "onnx"
	EncoderBackendMock = "mock"
)

// EncoderConfig holds text encoder settings.
type EncoderConfig struct {
	Backend    string `yaml:"backend"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// WeightsConfig holds the fused-score weights. They are normalized to sum 1.
type WeightsConfig struct {
	TokenSubtag   float64 `yaml:"token_subtag"`
	SentSubtag    float64 `yaml:"sent_subtag"`
	TokenCentroid float64 `yaml:"token_centroid"`
	SentCentroid  float64 `yaml:"sent_centroid"`
}

// ClassifierConfig holds scoring and decision settings.
type ClassifierConfig struct {
	DefaultVersion        string        `yaml:"default_version"`
	Template              string        `yaml:"template"`
	Weights               WeightsConfig `yaml:"weights"`
	LowRelevanceThreshold float64       `yaml:"low_relevance_threshold"`
	CentroidThreshold     float64       `yaml:"centroid_threshold"`
	Workers               int           `yaml:"workers"`
	EncodeTimeout         time.Duration `yaml:"encode_timeout"`
	BuildTimeout          time.Duration `yaml:"build_timeout"`
}

// ResilienceConfig holds retry and circuit breaker settings for encoder calls.
type ResilienceConfig struct {
	RetryMaxAttempts    int           `yaml:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `yaml:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `yaml:"retry_max_backoff"`
	RetryMultiplier     float64       `yaml:"retry_multiplier"`
	BreakerEnabled      *bool         `yaml:"breaker_enabled"`
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

// BreakerEnabledOrDefault returns whether the breaker is on; defaults to true when unset.
func (r *ResilienceConfig) BreakerEnabledOrDefault() bool {
	if r.BreakerEnabled != nil {
		return *r.BreakerEnabled
	}
	return true
}

// WatchConfig holds taxonomy directory watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.TaxonomyDir = expandPath(cfg.Storage.TaxonomyDir, configDir)
	cfg.Storage.CacheDir = expandPath(cfg.Storage.CacheDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Encoder.ModelPath = expandPath(cfg.Encoder.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges and enumerations. Call it after ApplyDefaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.CacheBackend {
	case CacheBackendDisk, CacheBackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.cache_backend must be %q or %q, got %q",
			CacheBackendDisk, CacheBackendSQLite, c.Storage.CacheBackend))
	}
	switch c.Encoder.Backend {
	case EncoderBackendONNX, EncoderBackendMock:
	default:
		errs = append(errs, fmt.Errorf("encoder.backend must be %q or %q, got %q",
			EncoderBackendONNX, EncoderBackendMock, c.Encoder.Backend))
	}
	if c.Encoder.Dimensions <= 0 {
		errs = append(errs, errors.New("encoder.dimensions must be positive"))
	}
	if c.Encoder.BatchSize < 0 {
		errs = append(errs, errors.New("encoder.batch_size must not be negative"))
	}
	cl := c.Classifier
	if cl.DefaultVersion != "" && !taxonomy.ValidVersion(cl.DefaultVersion) {
		errs = append(errs, fmt.Errorf("classifier.default_version %q is not YYYY-MM", cl.DefaultVersion))
	}
	for name, v := range map[string]float64{
		"low_relevance_threshold": cl.LowRelevanceThreshold,
		"centroid_threshold":      cl.CentroidThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("classifier.%s %v outside [0,1]", name, v))
		}
	}
	w := cl.Weights
	if w.TokenSubtag < 0 || w.SentSubtag < 0 || w.TokenCentroid < 0 || w.SentCentroid < 0 {
		errs = append(errs, errors.New("classifier.weights must not be negative"))
	}
	if cl.Template != "" && !strings.Contains(cl.Template, "{subtag}") {
		errs = append(errs, errors.New("classifier.template must contain {subtag}"))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
