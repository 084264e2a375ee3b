// Package config provides TOML configuration loading for the printadmin tools
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the shared configuration for the printadmin tools. All tools read
// the same file so the fleet list is maintained in one place.
type Config struct {
	// Printers is the ordered fleet list. Order matters: devices are
	// processed sequentially and status output follows this order.
	Printers []string      `toml:"printers"`
	HTTP     HTTPConfig    `toml:"http"`
	SNMP     SNMPConfig    `toml:"snmp"`
	Logging  LoggingConfig `toml:"logging"`
	History  HistoryConfig `toml:"history"`
}

// HTTPConfig holds settings for the printers' embedded web consoles
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// SNMPConfig holds SNMP client settings for the toner reporter
type SNMPConfig struct {
	Community      string `toml:"community"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// HistoryConfig controls the per-run outcome journal
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns a configuration with sensible defaults and an empty fleet.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{TimeoutSeconds: 10},
		SNMP:    SNMPConfig{Community: "public", TimeoutSeconds: 5},
		Logging: LoggingConfig{Level: "INFO"},
		History: HistoryConfig{Enabled: false, Path: "printadmin.db"},
	}
}

// Load reads the config file at path. An empty path searches the standard
// locations (see SearchPaths). Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, err := findConfigFile("printadmin.toml")
		if err != nil {
			// No config file anywhere: run on defaults (empty fleet). The
			// tools report the empty fleet themselves.
			return cfg, nil
		}
		path = found
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = 10
	}
	if cfg.SNMP.TimeoutSeconds <= 0 {
		cfg.SNMP.TimeoutSeconds = 5
	}
	if cfg.SNMP.Community == "" {
		cfg.SNMP.Community = "public"
	}

	return cfg, nil
}

// WriteDefault writes a default config file at path, refusing to overwrite an
// existing one.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(Default()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SearchPaths returns an ordered list of paths to search for the config file
func SearchPaths(filename string) []string {
	var searchPaths []string

	// 1. System directory (highest priority)
	switch runtime.GOOS {
	case "windows":
		searchPaths = append(searchPaths, filepath.Join(os.Getenv("ProgramData"), "printadmin", filename))
	case "darwin":
		searchPaths = append(searchPaths, filepath.Join("/Library/Application Support", "printadmin", filename))
	default: // Linux and other Unix-like
		searchPaths = append(searchPaths, filepath.Join("/etc/printadmin", filename))
	}

	// 2. User-specific config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "AppData", "Local", "printadmin", filename))
		case "darwin":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "Library", "Application Support", "printadmin", filename))
		default:
			searchPaths = append(searchPaths, filepath.Join(homeDir, ".config", "printadmin", filename))
		}
	}

	// 3. Current working directory (lowest priority)
	searchPaths = append(searchPaths, filepath.Join(".", filename))

	return searchPaths
}

func findConfigFile(filename string) (string, error) {
	for _, path := range SearchPaths(filename) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in any search path", filename)
}
