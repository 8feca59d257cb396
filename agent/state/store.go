package state

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	DefaultIdleTimeout    = time.Hour
	defaultStoreKeyPrefix = "support:session:"
)

// Store is the session persistence contract used by the orchestrator.
// Callers serialize access per session id.
type Store interface {
	GetOrCreate(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// StoreOption customizes the session stores.
type StoreOption func(*storeOptions)

type storeOptions struct {
	keyPrefix  string
	idle       time.Duration
	httpClient *http.Client
	now        func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		keyPrefix: defaultStoreKeyPrefix,
		idle:      DefaultIdleTimeout,
		now:       time.Now,
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := defaultStoreOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

// WithIdleTimeout sets how long a session may sit untouched. The redis
// backends use it as the key TTL.
func WithIdleTimeout(idle time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.idle = idle
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *storeOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func sessionKey(prefix, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return prefix + sessionID, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
