package chat

import (
	"sync"
	"time"
)

const defaultMaxSessions = 1000

// SessionStore maps session ids to sessions. When full, the least recently
// used session is evicted.
type SessionStore struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	systemPrompt string
	maxSessions  int
	maxTurns     int
}

func NewSessionStore(systemPrompt string, maxSessions, maxTurns int) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &SessionStore{
		sessions:     make(map[string]*Session),
		systemPrompt: systemPrompt,
		maxSessions:  maxSessions,
		maxTurns:     maxTurns,
	}
}

// Get returns the session for id, creating it if needed.
func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	if len(st.sessions) >= st.maxSessions {
		st.evictOldestLocked()
	}
	s := NewSession(st.systemPrompt, st.maxTurns)
	st.sessions[id] = s
	return s
}

// Lookup returns the session for id without creating one.
func (st *SessionStore) Lookup(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range st.sessions {
		if t := s.idleSince(); oldestID == "" || t.Before(oldest) {
			oldestID, oldest = id, t
		}
	}
	delete(st.sessions, oldestID)
}
