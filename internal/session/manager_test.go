package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rebot/internal/config"
)

func newTestManager(t *testing.T, cfg config.SessionConfig) *Manager {
	t.Helper()
	m := NewManager(Deps{Assistant: &fakeAssistant{reply: "ok"}}, cfg, zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager(t, config.SessionConfig{})

	s, err := m.Create()
	require.NoError(t, err)
	assert.Len(t, s.ID(), 36)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(s.ID()), ErrSessionNotFound)

	_, err = s.SendMessage(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestManager_MaxSessions(t *testing.T) {
	m := newTestManager(t, config.SessionConfig{MaxSessions: 2})

	for i := 0; i < 2; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}
	_, err := m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManager_Sweep(t *testing.T) {
	m := newTestManager(t, config.SessionConfig{TTL: time.Minute})

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Minute)
	active.mu.Lock()
	active.lastActive = later
	active.mu.Unlock()

	assert.Equal(t, 1, m.Sweep(later))
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(active.ID())
	assert.NoError(t, err)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := newTestManager(t, config.SessionConfig{TTL: time.Nanosecond, SweepInterval: 5 * time.Millisecond})
	_, err := m.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
