/*
Package config manages TOML config for spellserve services.

InitConfig handles automatic config file creation and loading with fallback
to defaults. LoadConfig and SaveConfig provide direct fs for runtime changes.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server ServerConfig `toml:"server"`
	Spell  SpellConfig  `toml:"spell"`
	Store  StoreConfig  `toml:"store"`
	CLI    CliConfig    `toml:"cli"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit   int `toml:"max_limit"`
	MaxWordLen int `toml:"max_word_len"`
	MaxTokens  int `toml:"max_tokens"`
}

// SpellConfig holds correction engine options.
type SpellConfig struct {
	MaxDistance int    `toml:"max_distance"`
	Language    string `toml:"language"`
	Index       string `toml:"index"` // "ngram" or "fastss"
	CacheSize   int    `toml:"cache_size"`
}

// StoreConfig holds backing store options.
type StoreConfig struct {
	Backend string `toml:"backend"` // "pebble" or "memory"
	Dir     string `toml:"dir"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit    int    `toml:"default_limit"`
	DefaultPrefix   string `toml:"default_prefix"`
	DefaultDistance int    `toml:"default_distance"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:   64,
			MaxWordLen: 60,
			MaxTokens:  16,
		},
		Spell: SpellConfig{
			MaxDistance: 2,
			Language:    "english",
			Index:       "ngram",
			CacheSize:   512,
		},
		Store: StoreConfig{
			Backend: "pebble",
			Dir:     "data/spelling",
		},
		CLI: CliConfig{
			DefaultLimit:    5,
			DefaultPrefix:   "",
			DefaultDistance: 2,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			return nil, err
		}
		log.Debugf("Created default config file at: ( %s )", configPath)
		return config, nil
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config, using defaults: %v", err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		log.Errorf("Failed to decode config file: %v", err)
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("Failed to create config file: %v", err)
		return err
	}
	defer file.Close()
	encoder := toml.NewEncoder(file)
	return encoder.Encode(config)
}
