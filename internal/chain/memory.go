package chain

import "sync"

// DefaultWindow is the number of exchanges kept by a Memory.
const DefaultWindow = 5

// Turn is one question/answer exchange.
type Turn struct {
	Question string
	Answer   string
}

// Memory keeps the last K exchanges of a conversation.
type Memory struct {
	mu    sync.Mutex
	k     int
	turns []Turn
}

// NewMemory returns a window memory of size k (DefaultWindow when k <= 0).
func NewMemory(k int) *Memory {
	if k <= 0 {
		k = DefaultWindow
	}
	return &Memory{k: k}
}

// Turns returns a copy of the retained exchanges, oldest first.
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Save appends an exchange and drops the oldest beyond the window.
func (m *Memory) Save(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Question: question, Answer: answer})
	if over := len(m.turns) - m.k; over > 0 {
		m.turns = append([]Turn(nil), m.turns[over:]...)
	}
}

// Clear forgets all exchanges.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.turns = nil
	m.mu.Unlock()
}
