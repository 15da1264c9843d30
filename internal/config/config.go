// Package config centralizes runtime configuration for cld. It loads a
// JSON configuration file and exposes a process-wide configuration with
// sensible defaults. Tests and development builds will use defaults when the
// file is not present. Operators should place a JSON file next to the data
// directory or specify a different path via the CLD_CONFIG env var;
// individual values can be overridden through CLD_* environment variables,
// typically supplied via a .env file.
package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "CLD_CONFIG"

// Config holds configurable options for the cld ledger and CLI.
type Config struct {
	// DataDir holds the ledger database, key material, and backups.
	DataDir string `json:"data_dir"`
	// KeyFile is the signing key used when no --as or --key flag is given.
	KeyFile string `json:"key_file"`
	// ChainName labels the ledger instance in its genesis metadata.
	ChainName string `json:"chain_name"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
	// Env selects the log encoder: dev or prod.
	Env string `json:"env"`
	// MaxBackups caps the number of timestamped ledger backups kept.
	MaxBackups int `json:"max_backups"`
}

var cfg *Config

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so that the
// CLI can run in development with minimal friction. CLD_* environment
// variables override file values.
func LoadConfig(path string) (*Config, error) {
	// sensible defaults
	def := &Config{
		DataDir:    "cld-data",
		KeyFile:    "",
		ChainName:  "courseledger",
		LogLevel:   "info",
		Env:        "dev",
		MaxBackups: 20,
	}

	c := def
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			var fc Config
			if err := json.Unmarshal(b, &fc); err == nil {
				// merge defaults for any zero-value fields
				if fc.DataDir == "" {
					fc.DataDir = def.DataDir
				}
				if fc.ChainName == "" {
					fc.ChainName = def.ChainName
				}
				if fc.LogLevel == "" {
					fc.LogLevel = def.LogLevel
				}
				if fc.Env == "" {
					fc.Env = def.Env
				}
				if fc.MaxBackups == 0 {
					fc.MaxBackups = def.MaxBackups
				}
				c = &fc
			}
		}
	}

	c.DataDir = getenv("CLD_DATA_DIR", c.DataDir)
	c.KeyFile = getenv("CLD_KEY_FILE", c.KeyFile)
	c.ChainName = getenv("CLD_CHAIN_NAME", c.ChainName)
	c.LogLevel = getenv("CLD_LOG_LEVEL", c.LogLevel)
	c.Env = getenv("CLD_ENV", c.Env)
	if v := os.Getenv("CLD_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxBackups = n
		}
	}

	cfg = c
	return cfg, nil
}

// Get returns the loaded configuration. If LoadConfig hasn't been called
// yet, it returns defaults.
func Get() *Config {
	if cfg == nil {
		LoadConfig("")
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
