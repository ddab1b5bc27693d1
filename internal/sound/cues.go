package sound

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/chatbubble/internal/config"
)

// Cues plays the configured spawn and click sounds.
type Cues struct {
	mu     sync.RWMutex
	logger *slog.Logger
	player *Player

	enabled bool
	spawn   string
	click   string
}

// NewCues creates the cue player for cfg. A nil out plays on the speaker.
func NewCues(cfg *config.DaemonConfig, out Output, logger *slog.Logger) *Cues {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cues{
		logger: logger,
		player: NewPlayer(out, logger),
	}
	c.Configure(cfg)
	return c
}

// Configure applies sound settings, preloading the configured files.
// It is called again on config hot reload.
func (c *Cues) Configure(cfg *config.DaemonConfig) {
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	spawn, click := cfg.SpawnSound(), cfg.ClickSound()

	c.mu.Lock()
	c.enabled = cfg.Sound.Enabled
	c.spawn = spawn
	c.click = click
	c.mu.Unlock()

	c.player.SetVolume(float64(cfg.Sound.Volume) / 100.0)

	if !cfg.Sound.Enabled {
		return
	}
	for _, path := range []string{spawn, click} {
		if err := c.player.Preload(path); err != nil {
			c.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
	}
	c.logger.Debug("sound cues configured", "spawn", spawn, "click", click, "volume", cfg.Sound.Volume)
}

// Enabled reports whether cues are played at all.
func (c *Cues) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// PlaySpawn plays the sound for a bubble appearing.
func (c *Cues) PlaySpawn() {
	c.play("spawn", func() string { return c.spawn })
}

// PlayClick plays the sound for a bubble being tapped.
func (c *Cues) PlayClick() {
	c.play("click", func() string { return c.click })
}

func (c *Cues) play(cue string, path func() string) {
	c.mu.RLock()
	enabled, p := c.enabled, path()
	c.mu.RUnlock()

	if !enabled || p == "" {
		return
	}
	if err := c.player.Play(p); err != nil {
		c.logger.Warn("failed to play sound", "cue", cue, "path", p, "error", err)
	}
}

// Close stops playback.
func (c *Cues) Close() {
	c.player.Close()
}
