package daemon

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatbubble/internal/presence"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []presence.Notification
	err  error
}

func (r *recordingNotifier) Notify(n presence.Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return uint32(len(r.sent)), r.err
}

func (r *recordingNotifier) CloseNotification(uint32) error { return nil }

func TestInternalNotifier_RateLimitsPerKey(t *testing.T) {
	rec := &recordingNotifier{}
	n := NewInternalNotifier(rec, nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	n.NotifyConfigReloaded()
	n.NotifyConfigReloaded()
	n.NotifyConfigError(errors.New("bad size"))
	require.Len(t, rec.sent, 2)

	now = now.Add(6 * time.Second)
	n.NotifyConfigReloaded()
	require.Len(t, rec.sent, 3)

	assert.Equal(t, "Configuration Reloaded", rec.sent[0].Summary)
	assert.Equal(t, "dialog-information", rec.sent[0].AppIcon)
	assert.Equal(t, byte(0), rec.sent[0].Hints["urgency"].Value())

	assert.Equal(t, "Configuration Error", rec.sent[1].Summary)
	assert.Contains(t, rec.sent[1].Body, "bad size")
	assert.Equal(t, "dialog-warning", rec.sent[1].AppIcon)
	assert.Equal(t, byte(1), rec.sent[1].Hints["urgency"].Value())
	assert.Equal(t, int32(5000), rec.sent[1].ExpireTimeout)
}

func TestInternalNotifier_Disabled(t *testing.T) {
	rec := &recordingNotifier{}
	n := NewInternalNotifier(rec, nil)
	n.SetEnabled(false)
	n.NotifyThemeError(errors.New("x"))
	assert.Empty(t, rec.sent)

	n.SetEnabled(true)
	n.SetMinInterval(0)
	n.NotifyThemeError(errors.New("x"))
	n.NotifyThemeError(errors.New("x"))
	assert.Len(t, rec.sent, 2)

	none := NewInternalNotifier(nil, nil)
	none.SetEnabled(true)
	none.NotifyConfigReloaded()
}

func TestInternalNotifier_SendErrorIsLogged(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("no server")}
	n := NewInternalNotifier(rec, nil)
	n.NotifyConfigReloaded()
	assert.Len(t, rec.sent, 1)
}
