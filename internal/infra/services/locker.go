package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	_ Iservices.ILocker = (*KeyedMutex)(nil)
	_ Iservices.ILocker = (*RedisLocker)(nil)
)

// KeyedMutex serializes callers per key inside one process. Entries are
// dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.release(key, e)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// held reports how many keys currently have holders or waiters.
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease lock shared by every replica. A holder that outlives
// TTL loses the lease; the conversation version check catches what slips through.
type RedisLocker struct {
	Client redis.Cmdable
	TTL    time.Duration
	Retry  time.Duration
	Prefix string
	Logger *logger.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *logger.Logger) *RedisLocker {
	return &RedisLocker{
		Client: client,
		TTL:    ttl,
		Retry:  50 * time.Millisecond,
		Prefix: "barrio:conversation-lock:",
		Logger: logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.Retry)
	defer ticker.Stop()
	for {
		ok, err := l.Client.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
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
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.Client, []string{redisKey}, token).Err(); err != nil {
				l.Logger.Warn("Failed to release conversation lock", logrus.Fields{"key": key, "error": err.Error()})
			}
		})
	}, nil
}
