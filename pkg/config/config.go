// Package config loads the flightlog configuration from a JSON file
// with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// configFileName is looked up in the working directory and the user's
// home directory when no explicit path is given.
const configFileName = ".flightlog.json"

// Config represents the complete application configuration.
type Config struct {
	ADSBX     ADSBXConfig     `json:"adsbx"`
	Observer  ObserverConfig  `json:"observer"`
	Filter    FilterConfig    `json:"filter"`
	Database  DatabaseConfig  `json:"database"`
	Collector CollectorConfig `json:"collector"`
}

// ADSBXConfig contains ADS-B Exchange API settings.
type ADSBXConfig struct {
	// APIKey is the RapidAPI key (required when UseRapidAPI is true).
	// Prefer the FLIGHTLOG_API_KEY environment variable over storing
	// the key in the config file.
	APIKey string `json:"api_key,omitempty"`

	// UseRapidAPI selects the RapidAPI endpoint (higher limits).
	UseRapidAPI bool `json:"use_rapid_api"`

	// BaseURL overrides the endpoint base URL. Empty uses the default
	// for the selected endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// RequestsPerSecond limits the API call rate (default: 1).
	RequestsPerSecond float64 `json:"requests_per_second"`

	// TimeoutSeconds is the per-request HTTP timeout (default: 30).
	TimeoutSeconds int `json:"timeout_seconds"`

	// RawUnits keeps the API's native feet/knots instead of SI units.
	RawUnits bool `json:"raw_units"`
}

// ObserverConfig is the reference location filters and display are
// centered on.
type ObserverConfig struct {
	// Name is a friendly identifier for this location
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`
}

// FilterConfig holds the default filter settings applied by the
// commands. Zero values leave a criterion unset.
type FilterConfig struct {
	// RadiusKm keeps flights within this distance of the observer
	RadiusKm float64 `json:"radius_km"`

	// MinAltitudeM / MaxAltitudeM bound altitude in meters when set
	MinAltitudeM *float64 `json:"min_altitude_m,omitempty"`
	MaxAltitudeM *float64 `json:"max_altitude_m,omitempty"`
}

// DatabaseConfig contains PostgreSQL connection settings for the
// collector.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`

	// Password should be supplied via FLIGHTLOG_DB_PASSWORD rather
	// than the config file.
	Password string `json:"password,omitempty"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`
}

// CollectorConfig controls the collector daemon.
type CollectorConfig struct {
	// UpdateIntervalSeconds is how often to refresh flight data
	UpdateIntervalSeconds int `json:"update_interval_seconds"`

	// RetentionHours is how long position history is kept
	RetentionHours int `json:"retention_hours"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ADSBX: ADSBXConfig{
			UseRapidAPI:       false,
			RequestsPerSecond: 1,
			TimeoutSeconds:    30,
		},
		Observer: ObserverConfig{
			Name:      "Home",
			Latitude:  37.7749,
			Longitude: -122.4194,
		},
		Filter: FilterConfig{
			RadiusKm: 100,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "flightlog",
			Username:     "flightlog",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Collector: CollectorConfig{
			UpdateIntervalSeconds: 30,
			RetentionHours:        24,
		},
	}
}

// FindConfigFile locates a configuration file in the standard places:
// the FLIGHTLOG_CONFIG environment variable, the working directory,
// then the home directory. Returns "" when none exists.
func FindConfigFile() string {
	if envPath := os.Getenv("FLIGHTLOG_CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, configFileName)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Load reads configuration from a JSON file. A .env file in the
// working directory is loaded first so its variables participate in
// the environment overrides. If path is empty the standard locations
// are searched; if no config file exists, defaults are returned.
func Load(path string) (*Config, error) {
	// Missing .env is fine, so the error is ignored
	_ = godotenv.Load()

	if path == "" {
		path = FindConfigFile()
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// Save writes the configuration to a JSON file. Useful for generating
// a starting template.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides.
// This keeps secrets like the API key and database password out of
// config files.
func (c *Config) applyEnvironmentOverrides() {
	if apiKey := os.Getenv("FLIGHTLOG_API_KEY"); apiKey != "" {
		c.ADSBX.APIKey = apiKey
	}
	if useRapid := os.Getenv("FLIGHTLOG_USE_RAPID_API"); useRapid != "" {
		if v, err := strconv.ParseBool(useRapid); err == nil {
			c.ADSBX.UseRapidAPI = v
		}
	}
	if dbPassword := os.Getenv("FLIGHTLOG_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
}
