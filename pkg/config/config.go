package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all epc tool configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	DBPath   string         `yaml:"db_path"`
	Cache    CacheConfig    `yaml:"cache"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Export   ExportConfig   `yaml:"export"`
	LogLevel string         `yaml:"log_level"`
}

// APIConfig defines the upstream EPC open-data API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Email   string        `yaml:"email"`
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds the backoff policy for one call site.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CacheConfig controls the local certificate cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// GeocoderConfig controls the coordinate resolution chain.
type GeocoderConfig struct {
	OSPlacesKey  string      `yaml:"os_places_api_key"`
	OSPlacesURL  string      `yaml:"os_places_url"`
	NominatimURL string      `yaml:"nominatim_url"`
	Concurrency  int         `yaml:"concurrency"`
	Retry        RetryConfig `yaml:"retry"`
}

// ExportConfig controls where exports land.
type ExportConfig struct {
	Path string `yaml:"path"`
	CRS  string `yaml:"crs"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://epc.opendatacommunities.org/api/v1",
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   time.Second,
				MaxDelay:    30 * time.Second,
			},
		},
		DBPath: "epc_cache.db",
		Cache: CacheConfig{
			Enabled: true,
			MaxAge:  24 * time.Hour,
		},
		Geocoder: GeocoderConfig{
			OSPlacesURL:  "https://api.os.uk/search/places/v1",
			NominatimURL: "https://nominatim.openstreetmap.org",
			Concurrency:  4,
			Retry: RetryConfig{
				MaxAttempts: 2,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		},
		Export: ExportConfig{
			Path: "exports",
			CRS:  "EPSG:4326",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file and expands environment variables.
// A missing file is not an error: defaults plus environment apply, so the
// tool works with nothing but EPC_API_EMAIL/EPC_API_KEY set.
func Load(path string) (*Config, error) {
	// Populate the environment from a .env file when present.
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.fillFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.fillFromEnv()
	return cfg, nil
}

// fillFromEnv applies the well-known environment variables for anything
// the file left unset.
func (c *Config) fillFromEnv() {
	if c.API.Email == "" {
		c.API.Email = os.Getenv("EPC_API_EMAIL")
	}
	if c.API.Key == "" {
		c.API.Key = os.Getenv("EPC_API_KEY")
	}
	if c.Geocoder.OSPlacesKey == "" {
		c.Geocoder.OSPlacesKey = os.Getenv("OS_PLACES_API_KEY")
	}
	if v := os.Getenv("EPC_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.DBPath = v
	}
}
