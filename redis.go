package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a string keyed store held in a single Redis hash. Puts and
// removes run as Lua scripts so previous values are captured atomically,
// and are then published to registered Listeners and Consumers. Ordering of
// notifications is only guaranteed for mutations made through the same
// RedisStore
type RedisStore struct {
	*notifier[string, string]
	logger    *zap.Logger
	client    *redis.Client
	putLua    *redis.Script
	removeLua *redis.Script
	key       string
	mu        sync.Mutex
}

// RedisConnectTimeout bounds the initial ping made by NewRedisStore
const RedisConnectTimeout = 5 * time.Second

// ErrUnexpectedLuaResult is returned when a script replies in an
// unrecognized shape
var ErrUnexpectedLuaResult = errors.New("unexpected result from Lua script")

// NewRedisStore connects to Redis and returns a store bound to the hash
// named by the configured prefix and name
func NewRedisStore(
	ctx context.Context, cfg RedisConfig,
) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{
		notifier:  newNotifier[string, string](),
		logger:    loggerOrNop(cfg.Logger),
		client:    client,
		putLua:    redis.NewScript(luaPut),
		removeLua: redis.NewScript(luaRemove),
		key:       fmt.Sprintf("%s:%s", cfg.Prefix, cfg.Name),
	}, nil
}

// Close unregisters every Listener, stops publishing, and closes the Redis
// client
func (s *RedisStore) Close() error {
	s.closeNotifier()
	return s.client.Close()
}

// Put stores value under key, returning the previous value if one existed
func (s *RedisStore) Put(
	ctx context.Context, key, value string,
) (string, bool, error) {
	s.mu.Lock()
	old, existed, err := s.run(ctx, s.putLua, key, value)
	if err != nil {
		s.mu.Unlock()
		return "", false, err
	}

	kind := Added
	if existed {
		kind = Updated
	}
	s.unlockAndPublish(appendChange(nil, kind, key, old, value))
	return old, existed, nil
}

// Remove deletes key, returning the value it held
func (s *RedisStore) Remove(
	ctx context.Context, key string,
) (string, bool, error) {
	s.mu.Lock()
	old, existed, err := s.run(ctx, s.removeLua, key)
	if err != nil || !existed {
		s.mu.Unlock()
		return "", false, err
	}

	s.unlockAndPublish(appendChange(nil, Removed, key, old, ""))
	return old, true, nil
}

// Get returns the value stored under key
func (s *RedisStore) Get(
	ctx context.Context, key string,
) (string, bool, error) {
	res, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// Len returns the number of stored keys
func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	return s.client.HLen(ctx, s.key).Result()
}

// Snapshot returns a copy of the current contents
func (s *RedisStore) Snapshot(
	ctx context.Context,
) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.key).Result()
}

// Clear removes every key without notifying Listeners
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) run(
	ctx context.Context, script *redis.Script, args ...any,
) (string, bool, error) {
	keys := []string{s.key}
	result, err := script.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return "", false, err
	}

	res, ok := result.([]any)
	if !ok || len(res) != 2 {
		return "", false, ErrUnexpectedLuaResult
	}
	existed, ok := res[0].(int64)
	if !ok {
		return "", false, ErrUnexpectedLuaResult
	}
	old, ok := res[1].(string)
	if !ok {
		return "", false, ErrUnexpectedLuaResult
	}
	return old, existed == 1, nil
}

func (s *RedisStore) unlockAndPublish(
	changes []Notification[string, string],
) {
	defer s.mu.Unlock()

	s.logger.Debug("Redis store changed",
		zap.String("hash", s.key),
		zap.Int("changes", len(changes)),
	)
	s.publish(changes)
}
