package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	clock := newFakeClock()
	store := newRedisStore(fake, WithClock(clock.Now))
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "r1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	sess.AwaitEmail("refund request", "I want a refund")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fake.ttls["support:session:r1"] != time.Hour {
		t.Fatalf("unexpected ttl: %v", fake.ttls["support:session:r1"])
	}

	clock.Advance(5 * time.Minute)
	again, err := store.GetOrCreate(ctx, "r1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !again.WaitingForEmail || again.OriginalQuery != "I want a refund" {
		t.Fatalf("unexpected session: %+v", again)
	}
	if !again.LastInteraction.Equal(clock.Now()) {
		t.Fatal("GetOrCreate must refresh last interaction")
	}

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := fake.data["support:session:r1"]; ok {
		t.Fatal("session still stored after Delete")
	}
}

func TestRedisStoreGetError(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failGet = errors.New("connection refused")
	store := newRedisStore(fake)

	if _, err := store.GetOrCreate(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() on fake must be a no-op, got %v", err)
	}
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStore(RedisConfig{}); err == nil {
		t.Fatal("expected error without addr")
	}
}
