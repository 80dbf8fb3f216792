package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rebot/internal/config"
)

// Manager owns the live sessions. Sessions idle for longer than the TTL
// are closed by Sweep.
type Manager struct {
	deps Deps
	cfg  config.SessionConfig
	log  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry
func NewManager(deps Deps, cfg config.SessionConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		log:      logger.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("%d sessions open: %w", len(m.sessions), ErrTooManySessions)
	}
	s := New(uuid.NewString(), m.deps)
	m.sessions[s.ID()] = s
	m.log.Info("session created", zap.String("session_id", s.ID()), zap.Int("active", len(m.sessions)))
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Delete closes and removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	s.Close()
	m.log.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes the sessions idle since before now minus the TTL and
// returns how many it closed.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.cfg.TTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.log.Info("expired idle sessions", zap.Int("closed", len(expired)), zap.Int("active", m.Len()))
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Close closes every session
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
	m.log.Info("all sessions closed", zap.Int("count", len(all)))
}
