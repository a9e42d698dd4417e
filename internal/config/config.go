package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Config holds the gateway configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Geocoding  GeocodingConfig  `yaml:"geocoding"`
	MapData    MapDataConfig    `yaml:"map_data"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port               int   `yaml:"port"`
	ReadTimeoutSec     int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int   `yaml:"write_timeout_sec"`
	ShutdownSec        int   `yaml:"shutdown_timeout_sec"`
	RateLimitPerMinute int   `yaml:"rate_limit_per_minute"` // per client IP on lookup routes
	MaxBodyBytes       int64 `yaml:"max_body_bytes"`
}

// GeocodingConfig holds Nominatim settings.
type GeocodingConfig struct {
	SearchURL   string `yaml:"search_url"`
	ReverseURL  string `yaml:"reverse_url"`
	UserAgent   string `yaml:"user_agent"`
	Limit       int    `yaml:"limit"`
	ReverseZoom int    `yaml:"reverse_zoom"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	RetryMax    int    `yaml:"retry_max"`
}

// MapDataConfig holds OpenStreetMap API settings.
type MapDataConfig struct {
	BaseURL    string `yaml:"base_url"`
	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`
	RetryMax   int    `yaml:"retry_max"`
}

// EnrichmentConfig holds the LLM provider settings. An empty APIKey disables enrichment.
type EnrichmentConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// StorageConfig holds uploaded image storage settings.
type StorageConfig struct {
	Driver        string   `yaml:"driver"` // filesystem, s3 (default: filesystem)
	UploadDir     string   `yaml:"upload_dir"`
	S3            S3Config `yaml:"s3"`
	TimeoutSec    int      `yaml:"timeout_sec"`
	MaxImageBytes int64    `yaml:"max_image_bytes"`
}

// CacheConfig holds lookup cache settings. Empty Addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Timeout returns the per-call limit for geocoding requests.
func (c GeocodingConfig) Timeout() time.Duration { return seconds(c.TimeoutSec) }

// Timeout returns the per-call limit for map data requests.
func (c MapDataConfig) Timeout() time.Duration { return seconds(c.TimeoutSec) }

// Timeout returns the per-call limit for enrichment requests.
func (c EnrichmentConfig) Timeout() time.Duration { return seconds(c.TimeoutSec) }

// Timeout returns the per-call limit for storing an image.
func (c StorageConfig) Timeout() time.Duration { return seconds(c.TimeoutSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return seconds(c.TTLSec) }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML (after ${VAR} expansion), applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// enrichment alone may take 30s
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimitPerMinute <= 0 {
		c.HTTP.RateLimitPerMinute = 60
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}

	if c.Geocoding.SearchURL == "" {
		c.Geocoding.SearchURL = "https://nominatim.openstreetmap.org/search"
	}
	if c.Geocoding.ReverseURL == "" {
		c.Geocoding.ReverseURL = "https://nominatim.openstreetmap.org/reverse"
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = defaultUserAgent
	}
	if c.Geocoding.Limit <= 0 {
		c.Geocoding.Limit = 1
	}
	if c.Geocoding.ReverseZoom <= 0 {
		c.Geocoding.ReverseZoom = 18
	}
	if c.Geocoding.TimeoutSec <= 0 {
		c.Geocoding.TimeoutSec = 10
	}

	if c.MapData.BaseURL == "" {
		c.MapData.BaseURL = "https://www.openstreetmap.org/api/0.6"
	}
	if c.MapData.UserAgent == "" {
		c.MapData.UserAgent = defaultUserAgent
	}
	if c.MapData.TimeoutSec <= 0 {
		c.MapData.TimeoutSec = 10
	}

	if c.Enrichment.BaseURL == "" {
		c.Enrichment.BaseURL = "https://api.openai.com/v1"
	}
	if c.Enrichment.Model == "" {
		c.Enrichment.Model = "gpt-4o-mini"
	}
	if c.Enrichment.TimeoutSec <= 0 {
		c.Enrichment.TimeoutSec = 30
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFilesystem
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.TimeoutSec <= 0 {
		c.Storage.TimeoutSec = 10
	}
	if c.Storage.MaxImageBytes <= 0 {
		c.Storage.MaxImageBytes = 10 << 20
	}

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

const defaultUserAgent = "CitySnapGateway/0.1 (+https://github.com/citysnap/gateway)"

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Geocoding.RetryMax < 0 {
		return fmt.Errorf("geocoding.retry_max must not be negative, got %d", c.Geocoding.RetryMax)
	}
	if c.MapData.RetryMax < 0 {
		return fmt.Errorf("map_data.retry_max must not be negative, got %d", c.MapData.RetryMax)
	}
	switch c.Storage.Driver {
	case StorageFilesystem:
	case StorageS3:
		s3 := c.Storage.S3
		if s3.Endpoint == "" || s3.AccessKey == "" || s3.SecretKey == "" || s3.Bucket == "" {
			return fmt.Errorf("storage.s3 requires endpoint, access_key, secret_key and bucket")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q",
			StorageFilesystem, StorageS3, c.Storage.Driver)
	}
	if c.Enrichment.Temperature < 0 || c.Enrichment.Temperature > 2 {
		return fmt.Errorf("enrichment.temperature must be within [0, 2], got %v", c.Enrichment.Temperature)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and `go run` from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
