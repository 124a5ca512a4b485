// Package config provides configuration management for the application.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Scanner ScannerConfig
	Cache   CacheConfig
	Storage StorageConfig
	Data    DataConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	MasterKey       string
	MetricsEnabled  bool
	MetricsEndpoint string
}

// ScannerConfig holds scan backend configuration
type ScannerConfig struct {
	// APIBaseURL is the scan backend, e.g. https://api.example.com/api
	APIBaseURL string
	// DashboardURL is the companion website opened by the dashboard command
	DashboardURL string
}

// CacheConfig holds scan cache configuration
type CacheConfig struct {
	// Backend is "file" or "redis"
	Backend string
	// RedisURL is the Redis connection string when Backend is "redis"
	RedisURL string
}

// StorageConfig holds scan history database configuration
type StorageConfig struct {
	// Type is "sqlite" or "postgresql"
	Type string
	// PostgresURL is the connection string when Type is "postgresql"
	PostgresURL string
	// RetentionDays is how long scan history is kept
	RetentionDays int
}

// DataConfig holds local state file locations
type DataConfig struct {
	// Dir is the directory for state files and the SQLite database
	Dir string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8090")
	viper.SetDefault("SCAN_API_BASE_URL", "http://localhost:3000/api")
	viper.SetDefault("DASHBOARD_URL", "http://localhost:3000/dashboard")
	viper.SetDefault("CACHE_BACKEND", "file")
	viper.SetDefault("STORAGE_TYPE", "sqlite")
	viper.SetDefault("HISTORY_RETENTION_DAYS", 30)
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("DATA_DIR", "data")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("PORT"),
			MasterKey:       viper.GetString("MASTER_KEY"),
			MetricsEnabled:  viper.GetBool("METRICS_ENABLED"),
			MetricsEndpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Scanner: ScannerConfig{
			APIBaseURL:   viper.GetString("SCAN_API_BASE_URL"),
			DashboardURL: viper.GetString("DASHBOARD_URL"),
		},
		Cache: CacheConfig{
			Backend:  viper.GetString("CACHE_BACKEND"),
			RedisURL: viper.GetString("REDIS_URL"),
		},
		Storage: StorageConfig{
			Type:          viper.GetString("STORAGE_TYPE"),
			PostgresURL:   viper.GetString("POSTGRES_URL"),
			RetentionDays: viper.GetInt("HISTORY_RETENTION_DAYS"),
		},
		Data: DataConfig{
			Dir: viper.GetString("DATA_DIR"),
		},
	}

	return cfg, nil
}

// StateFile returns the path of a JSON state file under the data directory.
func (c *Config) StateFile(name string) string {
	return filepath.Join(c.Data.Dir, name)
}

// SQLitePath returns the scan history database path for the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Data.Dir, "linkguard.db")
}
