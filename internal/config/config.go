package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host                string
	Port                string
	RequestTimeout      time.Duration
	ImageFetchTimeout   time.Duration
	MaxRequestBodySize  int64
	MaxImageBytes       int64
	MaxPixelsInResponse int
	MaxImageSamples     int
	AllowLocalPaths     bool
	LocalRoot           string
	ImageBackend        string
	AzureStorageAccount string
	AzureStorageKey     string
	LogLevel            string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob storage credentials are configured
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("image_fetch_timeout", 15*time.Second)
	v.SetDefault("max_request_body_size", 1<<20)  // 1MB
	v.SetDefault("max_image_bytes", 50<<20)       // 50MB
	v.SetDefault("max_pixels_in_response", 1<<20) // samples
	v.SetDefault("max_image_samples", 100_000_000)
	v.SetDefault("allow_local_paths", false)
	v.SetDefault("local_root", "")
	v.SetDefault("image_backend", "go")
	v.SetDefault("azure_storage_account", "")
	v.SetDefault("azure_storage_key", "")
	v.SetDefault("log_level", "info")
}

// LoadFromEnv reads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load reads configuration from configFile, if set, with environment
// variables taking precedence. Keys in the file are the lower-case
// forms of the environment names, e.g. request_timeout.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Host:                strings.TrimSpace(v.GetString("host")),
		Port:                strings.TrimSpace(v.GetString("port")),
		RequestTimeout:      v.GetDuration("request_timeout"),
		ImageFetchTimeout:   v.GetDuration("image_fetch_timeout"),
		MaxRequestBodySize:  v.GetInt64("max_request_body_size"),
		MaxImageBytes:       v.GetInt64("max_image_bytes"),
		MaxPixelsInResponse: v.GetInt("max_pixels_in_response"),
		MaxImageSamples:     v.GetInt("max_image_samples"),
		AllowLocalPaths:     v.GetBool("allow_local_paths"),
		LocalRoot:           strings.TrimSpace(v.GetString("local_root")),
		ImageBackend:        strings.TrimSpace(v.GetString("image_backend")),
		AzureStorageAccount: strings.TrimSpace(v.GetString("azure_storage_account")),
		AzureStorageKey:     strings.TrimSpace(v.GetString("azure_storage_key")),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints
func (c *Config) Validate() error {
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be > 0 (got %d)", c.MaxImageBytes)
	}
	if c.MaxPixelsInResponse < 0 {
		return fmt.Errorf("MAX_PIXELS_IN_RESPONSE must be >= 0 (got %d)", c.MaxPixelsInResponse)
	}
	if c.MaxImageSamples < 0 {
		return fmt.Errorf("MAX_IMAGE_SAMPLES must be >= 0 (got %d)", c.MaxImageSamples)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)",
			c.RequestTimeout, c.ImageFetchTimeout)
	}
	if (c.AzureStorageAccount == "") != (c.AzureStorageKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	if c.ImageBackend == "" {
		return fmt.Errorf("IMAGE_BACKEND must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}
	return nil
}
