package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingSignIn is the server-side half of an OAuth redirect.
type PendingSignIn struct {
	BrowserKey string    `json:"browser_key"`
	Provider   string    `json:"provider"`
	Verifier   string    `json:"verifier"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveState stores a pending sign-in under its state value
func (s *Store) SaveState(ctx context.Context, state string, p PendingSignIn, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}
	if err := s.client.Set(ctx, StateKey(state), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// TakeState returns and removes the pending sign-in for state. A state can
// be taken once; nil is returned when it is unknown or expired.
func (s *Store) TakeState(ctx context.Context, state string) (*PendingSignIn, error) {
	data, err := s.client.GetDel(ctx, StateKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to take oauth state: %w", err)
	}

	var p PendingSignIn
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}
	return &p, nil
}
