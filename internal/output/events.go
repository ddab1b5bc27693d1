package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jmylchreest/chatbubble/internal/dbus"
)

// SignalWriter writes bus signals as they arrive, either as JSON lines or
// as tab separated text.
type SignalWriter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewSignalWriter creates a writer. Only FormatJSON and FormatPlain are
// meaningful for a stream; anything else is rejected.
func NewSignalWriter(w io.Writer, format FormatType) (*SignalWriter, error) {
	switch format {
	case FormatJSON:
		return &SignalWriter{w: w, json: true}, nil
	case FormatPlain, "":
		return &SignalWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported stream format %q, must be plain or json", format)
	}
}

// Write outputs a single signal.
func (s *SignalWriter) Write(sig dbus.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.json {
		data, err := json.Marshal(sig)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(s.w, "%s\n", data)
		return err
	}

	ts := sig.At.Format("15:04:05")
	var err error
	switch sig.Kind {
	case dbus.SignalKindClicked:
		_, err = fmt.Fprintf(s.w, "%s\t%s\t%s\t%s\n", ts, sig.Kind, sig.Bubble.Identity, sig.Bubble.DisplayName)
	case dbus.SignalKindClosed:
		_, err = fmt.Fprintf(s.w, "%s\t%s\t%s\t%s\n", ts, sig.Kind, sig.Bubble.Identity, sig.Reason)
	default:
		_, err = fmt.Fprintf(s.w, "%s\t%s\n", ts, sig.Kind)
	}
	return err
}
