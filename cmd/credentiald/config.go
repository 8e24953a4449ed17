// config.go - Configuration management for the credential service
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the service configuration
type Config struct {
	// HTTP
	ListenAddr string `json:"listen_addr"`

	// Administration. The token gates registration toggles and publication.
	AdminToken string `json:"admin_token"`

	// File paths
	StorePath string `json:"store_path"`
	KeyDir    string `json:"key_dir"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Rate limiting for enrollment submissions
	RateLimitTokens   int `json:"rate_limit_tokens"`
	RateLimitRefill   int `json:"rate_limit_refill"`
	RateLimitPeriodMs int `json:"rate_limit_period_ms"`

	// Security
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8080",
		AdminToken:        "admin",
		StorePath:         "data/db.json",
		KeyDir:            "keys",
		LogLevel:          "info",
		LogFile:           "credentiald.log",
		RateLimitTokens:   20,
		RateLimitRefill:   5,
		RateLimitPeriodMs: 1000,
		EnableAudit:       true,
		AuditLogPath:      "audit.log",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("admin_token must not be empty")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.RateLimitTokens <= 0 {
		return fmt.Errorf("rate_limit_tokens must be positive")
	}
	if c.RateLimitRefill <= 0 {
		return fmt.Errorf("rate_limit_refill must be positive")
	}
	if c.RateLimitPeriodMs <= 0 {
		return fmt.Errorf("rate_limit_period_ms must be positive")
	}
	return nil
}
