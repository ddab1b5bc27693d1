package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// IDsFormatter outputs just the user ids, one per line.
// Useful for piping to other commands (e.g. xargs chatbubble hide).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes one identity per line.
func (f *IDsFormatter) Format(w io.Writer, sessions []model.SessionInfo) error {
	for _, s := range sessions {
		if _, err := fmt.Fprintln(w, s.Bubble.Identity); err != nil {
			return err
		}
	}
	return nil
}
