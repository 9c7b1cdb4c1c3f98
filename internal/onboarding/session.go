package onboarding

import "sync"

// State is the step of the onboarding conversation a user is in.
type State int

const (
	StateIdle State = iota
	StateAwaitingFamilyName
	StateAwaitingUserName
	StateAwaitingFamilyRename
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFamilyName:
		return "awaiting_family_name"
	case StateAwaitingUserName:
		return "awaiting_user_name"
	case StateAwaitingFamilyRename:
		return "awaiting_family_rename"
	default:
		return "unknown"
	}
}

// Session is the conversation state of one user.
type Session struct {
	State State
	// FamilyID is the family the conversation is about, once known.
	FamilyID int64
	// Joined is set when the family was entered with an invite code.
	Joined bool
}

// SessionStore keeps sessions by user id. A missing session means Idle.
type SessionStore interface {
	Get(userID int64) (Session, bool)
	Put(userID int64, session Session)
	Delete(userID int64)
}

// MemoryStore is a SessionStore held in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (m *MemoryStore) Get(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *MemoryStore) Put(userID int64, session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.State == StateIdle {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = session
}

func (m *MemoryStore) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len returns the number of users in the middle of a conversation.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
