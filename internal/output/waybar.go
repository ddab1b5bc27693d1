package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Waybar classes and alt values.
const (
	StatusActive      = "active"
	StatusEmpty       = "empty"
	StatusUnavailable = "unavailable"
	StatusDenied      = "denied"
)

// WaybarStatus is the JSON output format for Waybar custom modules.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

// NewWaybarStatus summarizes the daemon state for a status bar.
// capacity scales Percentage; zero leaves it unset.
func NewWaybarStatus(sessions []model.SessionInfo, permitted bool, capacity int) WaybarStatus {
	if !permitted {
		return WaybarStatus{
			Text:    "",
			Alt:     StatusDenied,
			Tooltip: "Overlay permission not granted",
			Class:   StatusDenied,
		}
	}

	n := len(sessions)
	if n == 0 {
		return WaybarStatus{
			Text:    "",
			Alt:     StatusEmpty,
			Tooltip: "No chat bubbles",
			Class:   StatusEmpty,
		}
	}

	names := make([]string, 0, n)
	for _, s := range sessions {
		name := s.Bubble.DisplayName
		if name == "" {
			name = string(s.Bubble.Identity)
		}
		names = append(names, name)
	}

	noun := "bubbles"
	if n == 1 {
		noun = "bubble"
	}

	status := WaybarStatus{
		Text:    fmt.Sprintf("%d", n),
		Alt:     StatusActive,
		Tooltip: fmt.Sprintf("%d chat %s\n%s", n, noun, strings.Join(names, "\n")),
		Class:   StatusActive,
	}
	if capacity > 0 {
		status.Percentage = min(100, n*100/capacity)
	}
	return status
}

// UnavailableStatus is reported when the daemon cannot be reached.
func UnavailableStatus() WaybarStatus {
	return WaybarStatus{
		Text:    "",
		Alt:     StatusUnavailable,
		Tooltip: "chatbubbled is not running",
		Class:   StatusUnavailable,
	}
}

// WriteStatus writes status as a single JSON line.
func WriteStatus(w io.Writer, status WaybarStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
