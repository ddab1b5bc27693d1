// Package output formats bubble listings, events and status for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Formatter formats bubble sessions for output.
type Formatter interface {
	Format(w io.Writer, sessions []model.SessionInfo) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatIDs   FormatType = "ids"
)

// ValidFormats returns all supported list formats.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatIDs}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string           // text/template for plain output
	Now      func() time.Time // Clock for relative ages; defaults to time.Now
}

// NewFormatter creates a formatter for format.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch FormatType(strings.ToLower(string(format))) {
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatIDs:
		return NewIDsFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown format %q, must be one of: %v", format, ValidFormats())
	}
}
