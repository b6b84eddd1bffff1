package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xaenox/readlater-bot/internal/models"
)

const stateKeyPrefix = "state:"

// RedisStateStore keeps conversation state under keys with a native TTL.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// OpenRedisStateStore parses a redis:// URL and pings the server
func OpenRedisStateStore(ctx context.Context, redisURL string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	return NewRedisStateStore(client), nil
}

func stateKey(userID int64) string {
	return stateKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStateStore) GetState(ctx context.Context, userID int64) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading state: %w", err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("error decoding state: %w", err)
	}
	// A key written with an action this build does not know reads as absent
	if !state.PendingAction.Valid() {
		return nil, nil
	}
	return &state, nil
}

func (s *RedisStateStore) PutState(ctx context.Context, state *models.ConversationState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error encoding state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.UserID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("error writing state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) DeleteState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("error deleting state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
