package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/model"
)

// PlainFormatter writes one templated line per bubble.
type PlainFormatter struct {
	template *template.Template
	now      func() time.Time
}

// row is the data plain templates are executed with.
type row struct {
	model.SessionInfo
	Index int
	Age   string
}

// NewPlainFormatter parses opts.Template, or the default list template when empty.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	text := opts.Template
	if text == "" {
		text = config.DefaultListTemplate
	}
	tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PlainFormatter{template: tmpl, now: now}, nil
}

// Format writes sessions as plain text.
func (f *PlainFormatter) Format(w io.Writer, sessions []model.SessionInfo) error {
	now := f.now()
	for i, s := range sessions {
		data := row{SessionInfo: s, Index: i + 1, Age: Age(s.CreatedAt, now)}
		if err := f.template.Execute(w, data); err != nil {
			return fmt.Errorf("failed to render %s: %w", s.Bubble.Identity, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Age describes how long ago t was, relative to now.
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"upper": strings.ToUpper,
		"initials": func(b model.Bubble) string {
			return b.Initials()
		},
	}
}
