package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Migration MigrationConfig `toml:"migration"`
}

// StoreConfig contains record store connection settings.
type StoreConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SessionsConfig contains session persistence settings.
//
// Backend selects the session store implementation: "file" keeps one JSON
// document per session under Dir, "sqlite" stores sessions in the record
// store database.
type SessionsConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// MigrationConfig contains knobs for the planning and reconciliation engine.
type MigrationConfig struct {
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	RateLimit           float64  `toml:"rate_limit"`
	ReservedContainers  []string `toml:"reserved_containers"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
