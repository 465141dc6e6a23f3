package game

import "sync"

// EventsFactory builds the event sink for a newly created session, so the
// socket layer can route per-user notifications without the game package
// knowing about transports.
type EventsFactory func(userID string) Events

// Manager hands out one Session per user, creating it on first use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	provider  Provider
	recorder  Recorder
	newEvents EventsFactory
	settings  Settings
}

func NewManager(provider Provider, recorder Recorder, newEvents EventsFactory, settings Settings) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		provider:  provider,
		recorder:  recorder,
		newEvents: newEvents,
		settings:  settings,
	}
}

func (m *Manager) Session(userID string) *Session {
	m.mu.RLock()
	s := m.sessions[userID]
	m.mu.RUnlock()
	if s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.sessions[userID]; s != nil {
		return s
	}
	var events Events
	if m.newEvents != nil {
		events = m.newEvents(userID)
	}
	s = NewSession(userID, m.provider, m.recorder, events, m.settings)
	m.sessions[userID] = s
	return s
}
