package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coachd-platform/coachd/internal/provider"
)

// Rolling window defaults. The context fed to the model is bounded to the
// last twenty turns; Postgres keeps the full record.
const (
	DefaultHistoryTurns = 20
	DefaultHistoryTTL   = 24 * time.Hour
)

// HistoryStore keeps the rolling conversation window per user in a Redis
// list. Postgres holds the durable records; this is only the context fed
// back to the model.
type HistoryStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

func NewHistoryStore(client *redis.Client, maxTurns int, ttl time.Duration) *HistoryStore {
	return &HistoryStore{client: client, maxTurns: maxTurns, ttl: ttl}
}

func historyKey(userID uuid.UUID) string {
	return fmt.Sprintf("conv:%s", userID.String())
}

// Recent returns the last turns for the user, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, userID uuid.UUID) ([]provider.Turn, error) {
	key := historyKey(userID)

	vals, err := s.client.LRange(ctx, key, int64(-s.maxTurns), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]provider.Turn, 0, len(vals))
	for _, v := range vals {
		var turn provider.Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append adds a turn to the user's window and trims it to the configured size.
func (s *HistoryStore) Append(ctx context.Context, userID uuid.UUID, turn provider.Turn) error {
	key := historyKey(userID)

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear drops the user's conversation window.
func (s *HistoryStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, historyKey(userID)).Err()
}
