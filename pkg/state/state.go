package state

import (
	"sync"
	"time"
)

// DefaultTTL is how long a conversation state lasts without activity
const DefaultTTL = 10 * time.Minute

// State represents the state of a chat
type State string

const (
	// StateNormal is the normal state
	StateNormal State = "normal"
	// StateAwaitingPantry means the next message is the pantry for /cook
	StateAwaitingPantry State = "awaiting_pantry"
	// StateAwaitingAnswer means the next message answers today's question
	StateAwaitingAnswer State = "awaiting_answer"
)

// ChatState represents the state of a chat
type ChatState struct {
	State     State
	Timestamp time.Time
}

// Manager manages chat states
type Manager struct {
	states map[int64]ChatState
	ttl    time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// New creates a new state manager
func New(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		states: make(map[int64]ChatState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetState sets the state for a chat
func (m *Manager) SetState(chatID int64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = ChatState{
		State:     state,
		Timestamp: m.now(),
	}
}

// GetState gets the state for a chat. Expired states read as StateNormal.
func (m *Manager) GetState(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[chatID]
	if !ok {
		return StateNormal
	}
	if m.now().Sub(state.Timestamp) > m.ttl {
		delete(m.states, chatID)
		return StateNormal
	}
	return state.State
}

// ClearState clears the state for a chat
func (m *Manager) ClearState(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
}
