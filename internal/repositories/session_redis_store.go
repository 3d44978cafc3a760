package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore is a Redis-backed implementation of SessionStore.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a new instance of RedisSessionStore.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(token string) string { return "session:" + token }
func flashKey(token string) string   { return "flash:" + token }

// Create stores a new session keyed by a random token.
func (s *RedisSessionStore) Create(ctx context.Context, email string) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, sessionKey(token), email, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// Get resolves a session token to the stored email.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (string, error) {
	email, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("session %s: %w", token, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return email, nil
}

// Delete removes a session.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token), flashKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetFlash stores a read-once notice for the session.
func (s *RedisSessionStore) SetFlash(ctx context.Context, token, message string) error {
	if err := s.client.Set(ctx, flashKey(token), message, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flash: %w", err)
	}
	return nil
}

// Flash returns and clears the pending notice for the session.
func (s *RedisSessionStore) Flash(ctx context.Context, token string) (string, error) {
	message, err := s.client.GetDel(ctx, flashKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("flash for session %s: %w", token, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get flash: %w", err)
	}
	return message, nil
}
