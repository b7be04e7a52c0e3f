package store

import (
	"context"
	"sync"

	"colornamer/internal/game"
)

// Memory is the in-process backend: a mutex-guarded map. Suitable for tests
// and single-process deployments.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]game.State
	updates  map[string][]Update
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]game.State),
		updates:  make(map[string][]Update),
	}
}

func (m *Memory) Get(_ context.Context, id string) (game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return game.State{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Put(_ context.Context, id string, s game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = s
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.updates, id)
	return nil
}

func (m *Memory) AppendUpdate(_ context.Context, id string, upd Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := append(m.updates[id], upd)
	if len(log) > UpdateLogSize {
		log = log[len(log)-UpdateLogSize:]
	}
	m.updates[id] = log
	return nil
}

func (m *Memory) Updates(_ context.Context, id string, since int64) ([]Update, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Update
	for _, u := range m.updates[id] {
		if u.Timestamp > since {
			out = append(out, u)
		}
	}
	return out, nil
}
