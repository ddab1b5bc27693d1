package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// YAMLFormatter formats sessions as a YAML sequence.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes sessions as YAML.
func (f *YAMLFormatter) Format(w io.Writer, sessions []model.SessionInfo) error {
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sessions); err != nil {
		return err
	}
	return enc.Close()
}
