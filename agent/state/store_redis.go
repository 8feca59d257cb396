package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// redisCommands is the subset of the go-redis client the store needs.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore persists sessions over the Redis protocol with a TTL equal to
// the idle timeout.
type RedisStore struct {
	client    redisCommands
	closer    func() error
	keyPrefix string
	idle      time.Duration
	now       func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(cfg RedisConfig, opts ...StoreOption) (*RedisStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis addr is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         strings.TrimSpace(cfg.Addr),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	store := newRedisStore(client, opts...)
	store.closer = client.Close
	return store, nil
}

func newRedisStore(client redisCommands, opts ...StoreOption) *RedisStore {
	o := applyStoreOptions(opts)
	return &RedisStore{
		client:    client,
		keyPrefix: o.keyPrefix,
		idle:      o.idle,
		now:       o.now,
	}
}

// Ping checks connectivity when the store owns a real client.
func (s *RedisStore) Ping(ctx context.Context) error {
	pinger, ok := s.client.(interface {
		Ping(ctx context.Context) *redis.StatusCmd
	})
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	key, err := sessionKey(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}

	var stored *Session
	raw, err := s.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("redis get session: %w", err)
	default:
		stored, err = decodeSession(raw)
		if err != nil {
			return nil, err
		}
	}

	return resume(stored, sessionID, s.now().UTC(), s.idle), nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.LastInteraction.IsZero() {
		sess.Touch(s.now())
	}
	key, err := sessionKey(s.keyPrefix, sess.SessionID)
	if err != nil {
		return err
	}
	payload, err := encodeSession(sess)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if s.idle > 0 {
		ttl = time.Duration(ttlSeconds(s.idle)) * time.Second
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := sessionKey(s.keyPrefix, sessionID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
