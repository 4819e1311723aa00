package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"zus_chatbot/pkg"
)

// TurnStore persists per-session conversation turns in insertion order
type TurnStore interface {
	Append(ctx context.Context, sessionID string, turn pkg.ConversationTurn) error
	Recent(ctx context.Context, sessionID string, maxTurns int) ([]pkg.ConversationTurn, error)
	Reset(ctx context.Context, sessionID string) error
}

const shardCount = 32

// MemoryTurnStore is an in-process TurnStore. Sessions are spread across shards and
// every session has its own mutex, so appends to one session are serialized while
// different sessions never contend on the same lock.
type MemoryTurnStore struct {
	shards     [shardCount]*shard
	sessionCap int
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu    sync.Mutex
	turns []pkg.ConversationTurn
}

// NewMemoryTurnStore creates an in-memory store. sessionCap bounds the turns kept per
// session (oldest dropped first); 0 keeps every turn.
func NewMemoryTurnStore(sessionCap int) *MemoryTurnStore {
	store := &MemoryTurnStore{sessionCap: sessionCap}
	for i := range store.shards {
		store.shards[i] = &shard{sessions: make(map[string]*memorySession)}
	}
	return store
}

func (m *MemoryTurnStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return m.shards[h.Sum32()%shardCount]
}

// session returns the session for sessionID, creating it when create is set
func (m *MemoryTurnStore) session(sessionID string, create bool) *memorySession {
	s := m.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists && create {
		session = &memorySession{}
		s.sessions[sessionID] = session
	}
	return session
}

// Append adds a turn, creating the session lazily
func (m *MemoryTurnStore) Append(ctx context.Context, sessionID string, turn pkg.ConversationTurn) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID cannot be empty", pkg.ErrInvalidRequest)
	}

	session := m.session(sessionID, true)
	session.mu.Lock()
	defer session.mu.Unlock()

	session.turns = append(session.turns, turn)
	if m.sessionCap > 0 && len(session.turns) > m.sessionCap {
		session.turns = append([]pkg.ConversationTurn(nil), session.turns[len(session.turns)-m.sessionCap:]...)
	}
	return nil
}

// Recent returns up to maxTurns most recent turns, oldest first
func (m *MemoryTurnStore) Recent(ctx context.Context, sessionID string, maxTurns int) ([]pkg.ConversationTurn, error) {
	session := m.session(sessionID, false)
	if session == nil || maxTurns <= 0 {
		return []pkg.ConversationTurn{}, nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	turns := session.turns
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]pkg.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Reset clears a session's history to empty
func (m *MemoryTurnStore) Reset(ctx context.Context, sessionID string) error {
	session := m.session(sessionID, false)
	if session == nil {
		return nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.turns = nil
	return nil
}

// SessionCount returns the number of known sessions
func (m *MemoryTurnStore) SessionCount() int {
	total := 0
	for _, s := range m.shards {
		s.mu.Lock()
		total += len(s.sessions)
		s.mu.Unlock()
	}
	return total
}
