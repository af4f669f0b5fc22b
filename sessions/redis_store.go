package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dosada05/tournament-bot/models"
)

const redisKeyPrefix = "tournament-bot:session:"

// RedisStore keeps sessions as JSON values whose TTL equals the step timeout,
// so abandoned wizards disappear without a sweep.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*models.Session, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session of user %d: %w", userID, err)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session of user %d: %w", userID, err)
	}
	if s.Data == nil {
		s.Data = make(map[models.Step]string)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session of user %d: %w", s.UserID, err)
	}
	if err := r.client.Set(ctx, redisKey(s.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session of user %d: %w", s.UserID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session of user %d: %w", userID, err)
	}
	return nil
}
