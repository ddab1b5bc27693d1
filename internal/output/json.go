package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// JSONFormatter formats sessions as a JSON array.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes sessions as an indented JSON array.
func (f *JSONFormatter) Format(w io.Writer, sessions []model.SessionInfo) error {
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sessions)
}
