package translation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// LockTTL bounds how long a translation key stays locked if its holder dies.
const LockTTL = 2 * time.Minute

// KeyLocker serializes work on a string key. The returned unlock is idempotent.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	token   chan struct{}
	waiters int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{token: make(chan struct{}, 1)}
		l.keys[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.token <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.token
	}
	l.mu.Lock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds keys with SET NX PX so replicas share one lock per key.
type RedisLocker struct {
	client       redis.UniversalClient
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client:       client,
		ttl:          LockTTL,
		pollInterval: 100 * time.Millisecond,
	}
}

// NewRedisLockerFromURL parses a redis:// URL and verifies the server answers.
func NewRedisLockerFromURL(ctx context.Context, rawURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisLocker(client), nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis locker is not initialized")
	}

	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire %s: timed out after %s", key, l.ttl)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
