// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultListFormat   = "plain"
	DefaultRefresh      = 2 * time.Second
	DefaultListTemplate = "{{.Bubble.Identity}}\t{{.Bubble.DisplayName}}\t({{.Position.X}},{{.Position.Y}})\t{{.Age}}"
)

// Config represents the chatbubble CLI configuration.
type Config struct {
	List      ListConfig      `toml:"list"`
	TUI       TUIConfig       `toml:"tui"`
	Clipboard ClipboardConfig `toml:"clipboard"`
}

// ListConfig holds defaults for the list command.
type ListConfig struct {
	Format   string `toml:"format"`   // plain, json, yaml
	Template string `toml:"template"` // Used by the plain format
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp bool     `toml:"show_help"`
	Refresh  Duration `toml:"refresh"` // How often the bubble list is re-read
}

// ClipboardConfig holds clipboard settings for the TUI.
type ClipboardConfig struct {
	Command string `toml:"command"` // Auto-detected when empty (wl-copy, xclip, xsel)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		List: ListConfig{
			Format:   DefaultListFormat,
			Template: DefaultListTemplate,
		},
		TUI: TUIConfig{
			ShowHelp: true,
			Refresh:  Duration(DefaultRefresh),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "chatbubble", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.TUI.Refresh <= 0 {
		cfg.TUI.Refresh = Duration(DefaultRefresh)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
