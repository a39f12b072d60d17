package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port"`
		Host string `json:"host"`
	} `json:"server"`
	Database struct {
		DSN string `json:"dsn"`
	} `json:"database"`
	Bus struct {
		// Driver selects the change-notification transport: "memory" keeps
		// everything in-process, "amqp" multiplexes over RabbitMQ.
		Driver   string `json:"driver"`
		URL      string `json:"url"`
		Exchange string `json:"exchange"`
	} `json:"bus"`
	JWT struct {
		Secret      string        `json:"secret"`
		TokenExpiry time.Duration `json:"token_expiry"`
	} `json:"jwt"`
	Logging struct {
		Level string `json:"level"`
		Path  string `json:"path"`
	} `json:"logging"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	applyEnvOverrides(config)
	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8080
	config.Server.Host = "localhost"
	config.Database.DSN = "file:clinic.db?cache=shared&mode=rwc"
	config.Bus.Driver = "memory"
	config.Bus.Exchange = "clinic.changes"
	config.JWT.Secret = "your-secret-key" // This should be changed in production
	config.JWT.TokenExpiry = 24 * time.Hour
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	return config
}

// applyEnvOverrides lets deployment environments override file settings.
// main loads .env via godotenv before this runs.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CLINIC_DB_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("CLINIC_BUS_URL"); v != "" {
		config.Bus.Driver = "amqp"
		config.Bus.URL = v
	}
	if v := os.Getenv("CLINIC_JWT_SECRET"); v != "" {
		config.JWT.Secret = v
	}
	if v := os.Getenv("CLINIC_LOG_PATH"); v != "" {
		config.Logging.Path = v
	}
}
