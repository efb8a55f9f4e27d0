// internal/store/memory.go
//
// In-memory implementations of the game Store and the conversation Log.
// Used for live attack sessions (whose attempted cells never leave the
// server) and for running without a database in development/testing.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Errors are returned for missing IDs on Get().

package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/robalobadob/battleship/internal/conversation"
	"github.com/robalobadob/battleship/internal/game"
)

var ErrGameNotFound = errors.New("game not found")

// Store defines the persistence interface for attack sessions.
type Store interface {
	// Save persists or updates a game.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a game by ID, or ErrGameNotFound.
	Get(ctx context.Context, id string) (*game.Game, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex          // guards games map
	games map[string]*game.Game // keyed by Game.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrGameNotFound
}

// memoryLog keeps messages in insertion order.
type memoryLog struct {
	mu   sync.RWMutex
	msgs []conversation.Message
	byID map[string]int
}

// NewMemoryLog constructs an in-memory conversation.Log.
func NewMemoryLog() conversation.Log {
	return &memoryLog{byID: make(map[string]int)}
}

func (l *memoryLog) Insert(ctx context.Context, m conversation.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[m.ID]; ok {
		return errors.New("duplicate message id")
	}
	l.byID[m.ID] = len(l.msgs)
	l.msgs = append(l.msgs, m)
	return nil
}

func (l *memoryLog) Get(ctx context.Context, id string) (conversation.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i, ok := l.byID[id]; ok {
		return l.msgs[i], nil
	}
	return conversation.Message{}, conversation.ErrNotFound
}

func (l *memoryLog) Thread(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []conversation.Message{}
	for _, m := range l.msgs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
