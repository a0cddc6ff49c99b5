// Package store keeps the session credential in durable storage so it
// survives process restarts.
package store

import (
	"context"
	"errors"
	"sync"
)

// TokenKey is the fixed name the credential is stored under.
const TokenKey = "flexifisio_token"

var ErrNotFound = errors.New("credential not found")

type CredentialStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is a process-local store, used by tests and as a fallback when no
// durable backend is configured.
type Memory struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemory() *Memory {
	return &Memory{vals: make(map[string]string)}
}

func (m *Memory) Load(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.vals[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.vals, key)
	m.mu.Unlock()
	return nil
}
