package game

import (
	"log/slog"
	"sync"
	"time"
)

// Manager tracks live sessions per user and per tab.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]map[string]*Session),
	}
}

// Get returns the live session for a user and tab.
func (m *Manager) Get(userID, tabID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[tabID]
	}
	return nil
}

// Register stores s for a user/tab, closing any session it replaces.
func (m *Manager) Register(userID, tabID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*Session)
	}

	if existing, exists := m.active[userID][tabID]; exists && existing != s {
		existing.Close()
	}

	m.active[userID][tabID] = s
	slog.Info("Game session registered", "user_id", userID, "tab_id", tabID, "session_id", s.ID())
}

// Unregister removes s if it is still the current session for the user/tab.
func (m *Manager) Unregister(userID, tabID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[tabID]; exists && current == s {
			delete(sessions, tabID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Game session unregistered", "user_id", userID, "tab_id", tabID)
		}
	}
}

// CloseUser terminates every session of a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}

	for tab, s := range sessions {
		s.Close()
		slog.Info("Game session closed", "user_id", userID, "tab_id", tab)
	}
	delete(m.active, userID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// Expire closes and removes sessions idle since before cutoff. It returns the
// number of sessions removed.
func (m *Manager) Expire(cutoff time.Time) int {
	m.mu.Lock()
	var stale []*Session
	for userID, sessions := range m.active {
		for tab, s := range sessions {
			if s.LastActivity().Before(cutoff) {
				stale = append(stale, s)
				delete(sessions, tab)
			}
		}
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// CloseAll terminates every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.active
	m.active = make(map[string]map[string]*Session)
	m.mu.Unlock()

	for _, sessions := range all {
		for _, s := range sessions {
			s.Close()
		}
	}
}
