package display

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/model"
)

// avatarPath maps an avatar URL to a local file. Only file:// URLs, absolute
// paths and ~/ paths are supported; remote avatars fall back to initials.
func avatarPath(avatarURL string) (string, bool) {
	if avatarURL == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(avatarURL, "file://"):
		u, err := url.Parse(avatarURL)
		if err != nil || u.Path == "" {
			return "", false
		}
		return filepath.Clean(u.Path), true
	case strings.HasPrefix(avatarURL, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		return filepath.Join(home, avatarURL[2:]), true
	case filepath.IsAbs(avatarURL):
		return filepath.Clean(avatarURL), true
	}
	return "", false
}

// loadableAvatar returns the avatar file for b if it exists.
func loadableAvatar(b model.Bubble) (string, bool) {
	path, ok := avatarPath(b.AvatarURL)
	if !ok {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// schemeClass picks the light or dark CSS class. systemDark is only
// consulted for the system scheme.
func schemeClass(scheme string, systemDark func() bool) string {
	switch config.ColorScheme(scheme) {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	}
	if systemDark != nil && systemDark() {
		return "dark"
	}
	return "light"
}

// screenPoint converts a drag point on a window at pos to screen coordinates.
// start is where the drag began and offset is the distance travelled since,
// both in window coordinates.
func screenPoint(pos model.Position, startX, startY, offsetX, offsetY float64) (int, int) {
	return pos.X + int(startX+offsetX), pos.Y + int(startY+offsetY)
}
