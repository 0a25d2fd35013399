package store

import (
	"context"
	"sync"
)

// Memory mantém as coleções em memória (testes e STORE_BACKEND=memory)
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
