package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// SaveSession stores a browser's session until ttl elapses and indexes it
// by token expiry for the refresher. Sessions that cannot be refreshed are
// indexed by the time the stored key itself expires.
func (s *Store) SaveSession(ctx context.Context, browserKey string, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKey(browserKey), data, ttl)
	pipe.ZAdd(ctx, SessionIndexKey(), redis.Z{
		Score:  float64(indexScore(session, ttl).Unix()),
		Member: browserKey,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ReplaceSession overwrites the browser's session only if it still exists.
// It reports false when the session was deleted in the meantime, in which
// case nothing is written.
func (s *Store) ReplaceSession(ctx context.Context, browserKey string, session *domain.Session, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	set := pipe.SetArgs(ctx, SessionKey(browserKey), data, redis.SetArgs{Mode: "XX", TTL: ttl})
	pipe.ZAddXX(ctx, SessionIndexKey(), redis.Z{
		Score:  float64(indexScore(session, ttl).Unix()),
		Member: browserKey,
	})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to replace session: %w", err)
	}
	return set.Val() == "OK", nil
}

// indexScore is when the refresher should next look at session.
func indexScore(session *domain.Session, ttl time.Duration) time.Time {
	if session.RefreshToken == "" || session.TokenExpiry.IsZero() {
		return time.Now().Add(ttl)
	}
	return session.TokenExpiry
}

// GetSession returns the browser's session, or nil when there is none
func (s *Store) GetSession(ctx context.Context, browserKey string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(browserKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes the browser's session. It reports whether one
// existed.
func (s *Store) DeleteSession(ctx context.Context, browserKey string) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, SessionKey(browserKey))
	pipe.ZRem(ctx, SessionIndexKey(), browserKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return del.Val() > 0, nil
}

// SessionsExpiringBefore returns browser keys whose token expires before t.
// Index entries whose session has already expired are pruned.
func (s *Store) SessionsExpiringBefore(ctx context.Context, t time.Time) ([]string, error) {
	keys, err := s.client.ZRangeByScore(ctx, SessionIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", t.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan session index: %w", err)
	}

	live := make([]string, 0, len(keys))
	for _, key := range keys {
		n, err := s.client.Exists(ctx, SessionKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session: %w", err)
		}
		if n == 0 {
			if err := s.client.ZRem(ctx, SessionIndexKey(), key).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune session index: %w", err)
			}
			continue
		}
		live = append(live, key)
	}
	return live, nil
}

// CountSessions returns the number of indexed sessions
func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, SessionIndexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// PublishAuthChange broadcasts change to every view of the browser.
func (s *Store) PublishAuthChange(ctx context.Context, browserKey string, change domain.AuthChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal auth change: %w", err)
	}
	if err := s.client.Publish(ctx, AuthChannel(browserKey), data).Err(); err != nil {
		return fmt.Errorf("failed to publish auth change: %w", err)
	}
	return nil
}

// PruneSessionIndex drops index entries whose session has expired and
// returns how many were removed.
func (s *Store) PruneSessionIndex(ctx context.Context) (int, error) {
	keys, err := s.client.ZRange(ctx, SessionIndexKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read session index: %w", err)
	}

	removed := 0
	for _, key := range keys {
		n, err := s.client.Exists(ctx, SessionKey(key)).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to check session: %w", err)
		}
		if n > 0 {
			continue
		}
		if err := s.client.ZRem(ctx, SessionIndexKey(), key).Err(); err != nil {
			return removed, fmt.Errorf("failed to prune session index: %w", err)
		}
		removed++
	}
	return removed, nil
}
