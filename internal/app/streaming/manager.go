// Package streaming manages the per-conversation segment channels that
// bridge the orchestrator to the SSE transport.
package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

const (
	// sessionBuffer bounds how far the producer may run ahead of a slow
	// SSE reader before pushes start timing out.
	sessionBuffer = 100

	pushTimeout = 2 * time.Second
)

// Session is one live streaming conversation turn. It satisfies the
// orchestrator's sink interface: segments pushed here are drained by the
// SSE handler.
type Session struct {
	ID        string
	ThreadID  string
	Segments  chan models.Segment
	CreatedAt time.Time

	logger *zap.Logger

	closeOnce sync.Once
}

// Push delivers one segment to the session channel. A reader that stays
// blocked past the timeout loses the segment; the turn still terminates
// because the channel is closed when the session ends.
func (s *Session) Push(segment models.Segment) {
	defer func() {
		// The session may close concurrently with a producer push.
		if r := recover(); r != nil {
			s.logger.Debug("Push on closed session dropped", zap.String("session_id", s.ID))
		}
	}()

	select {
	case s.Segments <- segment:
	case <-time.After(pushTimeout):
		s.logger.Warn("Segment dropped, reader too slow",
			zap.String("session_id", s.ID),
			zap.String("segment_type", string(segment.Type)))
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.Segments) })
}

// Manager tracks all active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Create registers a new session for a thread and returns it.
func (m *Manager) Create(threadID string) *Session {
	session := &Session{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Segments:  make(chan models.Segment, sessionBuffer),
		CreatedAt: time.Now(),
		logger:    m.logger,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// Get retrieves a session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	return session, ok
}

// Close closes a session's channel and removes it.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[sessionID]; ok {
		session.close()
		delete(m.sessions, sessionID)
	}
}

// CleanupExpired removes sessions older than maxAge and reports how many
// were closed. Covers turns whose reader never connected.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, session := range m.sessions {
		if session.CreatedAt.Before(cutoff) {
			session.close()
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions on an interval until ctx ends.
func (m *Manager) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.CleanupExpired(maxAge); removed > 0 {
					m.logger.Info("Cleaned up expired streaming sessions", zap.Int("count", removed))
				}
			}
		}
	}()
}
