package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "2s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '2s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for chatbubbled.
// Loaded from ~/.config/chatbubble/chatbubbled.toml
type DaemonConfig struct {
	Bubble   BubbleConfig   `toml:"bubble"`
	Presence PresenceConfig `toml:"presence"`
	Daemon   ServiceConfig  `toml:"daemon"`
	Sound    SoundConfig    `toml:"sound"`
	Theme    ThemeConfig    `toml:"theme"`
}

// BubbleConfig contains bubble window settings.
type BubbleConfig struct {
	Size          int `toml:"size"`           // Window width and height in pixels
	SpawnX        int `toml:"spawn_x"`        // Spawn point, offset from the left edge
	SpawnY        int `toml:"spawn_y"`        // Spawn point, offset from the top edge
	Stagger       int `toml:"stagger"`        // Offset per already active bubble
	DragThreshold int `toml:"drag_threshold"` // Pixels before a press becomes a drag
}

// PresenceConfig contains background presence notification settings.
type PresenceConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
}

// ServiceConfig contains daemon lifecycle settings.
type ServiceConfig struct {
	Backend      string   `toml:"backend"`        // "layershell" or "headless"
	ExitWhenIdle bool     `toml:"exit_when_idle"` // Quit after teardown
	IdleGrace    Duration `toml:"idle_grace"`     // Wait before quitting when idle
}

// SoundConfig contains sound settings.
type SoundConfig struct {
	Enabled bool   `toml:"enabled"`
	Volume  int    `toml:"volume"` // 0-100
	Spawn   string `toml:"spawn"`  // Played when a bubble appears
	Click   string `toml:"click"`  // Played when a bubble is tapped
}

// ThemeConfig contains bubble styling settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Backend selects how bubble windows are realised.
type Backend string

const (
	BackendLayerShell Backend = "layershell"
	BackendHeadless   Backend = "headless"
)

// ValidBackends returns all valid backend values.
func ValidBackends() []Backend {
	return []Backend{BackendLayerShell, BackendHeadless}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Bubble: BubbleConfig{
			Size:          120,
			SpawnX:        50,
			SpawnY:        200,
			Stagger:       0,
			DragThreshold: 10,
		},
		Presence: PresenceConfig{
			Enabled: true,
			Title:   "Chat Bubbles Active",
		},
		Daemon: ServiceConfig{
			Backend:      string(BackendLayerShell),
			ExitWhenIdle: false,
			IdleGrace:    Duration(2 * time.Second),
		},
		Sound: SoundConfig{
			Enabled: false,
			Volume:  80,
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "chatbubble", "chatbubbled.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFile(path)
}

// LoadDaemonConfigFile loads the daemon configuration from path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfigFile(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfigFile writes the daemon configuration to path.
func SaveDaemonConfigFile(config *DaemonConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Bubble.Size < 48 || c.Bubble.Size > 512 {
		return fmt.Errorf("bubble size must be between 48 and 512, got %d", c.Bubble.Size)
	}
	if c.Bubble.SpawnX < 0 || c.Bubble.SpawnY < 0 {
		return fmt.Errorf("spawn position must not be negative, got (%d, %d)", c.Bubble.SpawnX, c.Bubble.SpawnY)
	}
	if c.Bubble.Stagger < 0 {
		return fmt.Errorf("stagger must not be negative, got %d", c.Bubble.Stagger)
	}
	if c.Bubble.DragThreshold < 1 || c.Bubble.DragThreshold > 200 {
		return fmt.Errorf("drag_threshold must be between 1 and 200, got %d", c.Bubble.DragThreshold)
	}

	validBackend := false
	for _, b := range ValidBackends() {
		if c.Daemon.Backend == string(b) {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid backend %q, must be one of: %v", c.Daemon.Backend, ValidBackends())
	}
	if c.Daemon.IdleGrace < 0 {
		return fmt.Errorf("idle_grace must not be negative, got %s", c.Daemon.IdleGrace.Duration())
	}

	validScheme := false
	for _, cs := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(cs) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	if c.Sound.Volume < 0 || c.Sound.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Sound.Volume)
	}

	return nil
}

// SpawnSound returns the spawn sound path with ~ expanded.
func (c *DaemonConfig) SpawnSound() string {
	return expandPath(c.Sound.Spawn)
}

// ClickSound returns the click sound path with ~ expanded.
func (c *DaemonConfig) ClickSound() string {
	return expandPath(c.Sound.Click)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
