package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port int `toml:"port"`
}

type ImportConfig struct {
	ChunkSize       int `toml:"chunk_size"`
	PreviewRowLimit int `toml:"preview_row_limit"`
}

type CacheConfig struct {
	TreeTTLSeconds  int `toml:"tree_ttl_seconds"`
	StatsTTLSeconds int `toml:"stats_ttl_seconds"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Import ImportConfig `toml:"import"`
	Cache  CacheConfig  `toml:"cache"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Import: ImportConfig{ChunkSize: 100, PreviewRowLimit: 15},
		Cache:  CacheConfig{TreeTTLSeconds: 60, StatsTTLSeconds: 300},
	}
}

// PortOverride resolves the listen port from a PORT environment value,
// falling back to the configured port when raw is empty. A malformed or
// out-of-range value is an error, not a silent fallback.
func PortOverride(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return port, nil
}

// Load reads a TOML config file over the defaults, so a partial file only
// overrides the keys it sets.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}
