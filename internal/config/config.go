package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"go-motion-inspector/pkg/validation"
)

// Storage backends for the image slots
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageAzure  = "azure"
)

// Startup reconcile policies for images surviving from an earlier session
const (
	ReconcilePrompt  = "prompt"
	ReconcileKeep    = "keep"
	ReconcileDiscard = "discard"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	ServiceBaseURL      string
	ServiceAllowedHosts []string
	ServiceTimeout      time.Duration
	ServiceRateInterval time.Duration

	StorageBackend   string
	StoragePath      string
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string

	ReconcilePolicy string
	LogLevel        string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// uploadEnvelope is the allowance for the JSON or multipart framing around an image
const uploadEnvelope = 4 * 1024

// MaxImageBytes is the largest decoded image whose base64 data URL upload
// still fits under MaxRequestBodySize.
func (c *Config) MaxImageBytes() int {
	body := c.MaxRequestBodySize - uploadEnvelope
	if body <= 0 {
		body = c.MaxRequestBodySize
	}
	return int(body / 4 * 3)
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Host:                "0.0.0.0",
		Port:                "8080",
		RequestTimeout:      60 * time.Second,
		MaxRequestBodySize:  20 * 1024 * 1024, // 20MB, two images per request
		ServiceBaseURL:      "http://127.0.0.1:8000",
		ServiceTimeout:      45 * time.Second,
		ServiceRateInterval: 0,
		StorageBackend:      StorageMemory,
		StoragePath:         "motion-inspector-data",
		AzureContainer:      "motion-inspector-slots",
		ReconcilePolicy:     ReconcilePrompt,
		LogLevel:            "info",
	}
}

// LoadFromEnv builds the configuration from defaults, the optional TOML file
// named by CONFIG_FILE, and finally environment variables.
func LoadFromEnv() (*Config, error) {
	base := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := base.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Host:                getEnvOrDefault("HOST", base.Host),
		Port:                getEnvOrDefault("PORT", base.Port),
		RequestTimeout:      parseDurationOrDefault("REQUEST_TIMEOUT", base.RequestTimeout),
		MaxRequestBodySize:  parseIntOrDefault("MAX_REQUEST_BODY_SIZE", base.MaxRequestBodySize),
		ServiceBaseURL:      strings.TrimRight(getEnvOrDefault("SERVICE_BASE_URL", base.ServiceBaseURL), "/"),
		ServiceAllowedHosts: parseListOrDefault("SERVICE_ALLOWED_HOSTS", base.ServiceAllowedHosts),
		ServiceTimeout:      parseDurationOrDefault("SERVICE_TIMEOUT", base.ServiceTimeout),
		ServiceRateInterval: parseDurationOrDefault("SERVICE_RATE_INTERVAL", base.ServiceRateInterval),
		StorageBackend:      strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", base.StorageBackend)),
		StoragePath:         getEnvOrDefault("STORAGE_PATH", base.StoragePath),
		AzureAccountName:    getEnvOrDefault("AZURE_ACCOUNT_NAME", base.AzureAccountName),
		AzureAccountKey:     getEnvOrDefault("AZURE_ACCOUNT_KEY", base.AzureAccountKey),
		AzureContainer:      getEnvOrDefault("AZURE_CONTAINER", base.AzureContainer),
		ReconcilePolicy:     strings.ToLower(getEnvOrDefault("RECONCILE_POLICY", base.ReconcilePolicy)),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", base.LogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ServiceTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, service=%s)",
			c.RequestTimeout, c.ServiceTimeout)
	}
	if c.ServiceRateInterval < 0 {
		return fmt.Errorf("SERVICE_RATE_INTERVAL must be >= 0 (got %s)", c.ServiceRateInterval)
	}
	if err := validation.NewServiceURLValidator(c.ServiceAllowedHosts...).Validate(c.ServiceBaseURL); err != nil {
		return fmt.Errorf("invalid SERVICE_BASE_URL %q: %w", c.ServiceBaseURL, err)
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.StoragePath) == "" {
			return fmt.Errorf("STORAGE_PATH is required for the sqlite backend")
		}
	case StorageAzure:
		if c.AzureAccountName == "" || c.AzureAccountKey == "" || c.AzureContainer == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER are required for the azure backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %q", c.StorageBackend)
	}

	switch c.ReconcilePolicy {
	case ReconcilePrompt, ReconcileKeep, ReconcileDiscard:
	default:
		return fmt.Errorf("unknown RECONCILE_POLICY: %q", c.ReconcilePolicy)
	}
	return nil
}

// fileConfig mirrors Config with durations as strings, since TOML has no duration type
type fileConfig struct {
	Host                string   `toml:"host"`
	Port                string   `toml:"port"`
	RequestTimeout      string   `toml:"request_timeout"`
	MaxRequestBodySize  int64    `toml:"max_request_body_size"`
	ServiceBaseURL      string   `toml:"service_base_url"`
	ServiceAllowedHosts []string `toml:"service_allowed_hosts"`
	ServiceTimeout      string   `toml:"service_timeout"`
	ServiceRateInterval string   `toml:"service_rate_interval"`
	StorageBackend      string   `toml:"storage_backend"`
	StoragePath         string   `toml:"storage_path"`
	AzureAccountName    string   `toml:"azure_account_name"`
	AzureAccountKey     string   `toml:"azure_account_key"`
	AzureContainer      string   `toml:"azure_container"`
	ReconcilePolicy     string   `toml:"reconcile_policy"`
	LogLevel            string   `toml:"log_level"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlayString(&c.Host, fc.Host)
	overlayString(&c.Port, fc.Port)
	overlayString(&c.ServiceBaseURL, fc.ServiceBaseURL)
	overlayString(&c.StorageBackend, fc.StorageBackend)
	overlayString(&c.StoragePath, fc.StoragePath)
	overlayString(&c.AzureAccountName, fc.AzureAccountName)
	overlayString(&c.AzureAccountKey, fc.AzureAccountKey)
	overlayString(&c.AzureContainer, fc.AzureContainer)
	overlayString(&c.ReconcilePolicy, fc.ReconcilePolicy)
	overlayString(&c.LogLevel, fc.LogLevel)
	if len(fc.ServiceAllowedHosts) > 0 {
		c.ServiceAllowedHosts = fc.ServiceAllowedHosts
	}
	if fc.MaxRequestBodySize > 0 {
		c.MaxRequestBodySize = fc.MaxRequestBodySize
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"service_timeout", fc.ServiceTimeout, &c.ServiceTimeout},
		{"service_rate_interval", fc.ServiceRateInterval, &c.ServiceRateInterval},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("config file %s: invalid %s %q: %w", path, d.key, d.raw, err)
		}
		*d.target = parsed
	}
	return nil
}

func overlayString(target *string, value string) {
	if strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
