package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockSessionStore is an in-memory implementation of SessionStore.
type MockSessionStore struct {
	sessions map[string]string
	flashes  map[string]string
	mu       sync.RWMutex
}

// NewMockSessionStore creates a new instance of MockSessionStore.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]string),
		flashes:  make(map[string]string),
	}
}

// Create stores a new session keyed by a random token.
func (s *MockSessionStore) Create(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.New().String()
	s.sessions[token] = email
	return token, nil
}

// Get resolves a session token to the stored email.
func (s *MockSessionStore) Get(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.sessions[token]
	if !ok {
		return "", fmt.Errorf("session %s: %w", token, ErrNotFound)
	}
	return email, nil
}

// Delete removes a session.
func (s *MockSessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	delete(s.flashes, token)
	return nil
}

// SetFlash stores a read-once notice for the session.
func (s *MockSessionStore) SetFlash(_ context.Context, token, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flashes[token] = message
	return nil
}

// Flash returns and clears the pending notice for the session.
func (s *MockSessionStore) Flash(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.flashes[token]
	if !ok {
		return "", fmt.Errorf("flash for session %s: %w", token, ErrNotFound)
	}
	delete(s.flashes, token)
	return message, nil
}
