// Package redis stores sessions and pending OAuth sign-ins in Redis.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Store handles Redis operations for sessions and OAuth state
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Client exposes the underlying client for pub/sub users.
func (s *Store) Client() *redis.Client { return s.client }

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
