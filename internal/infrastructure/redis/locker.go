package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/pkg/config"
)

var _ inventory.LeaderLock = (*Locker)(nil)

// NewClient conecta a Redis y verifica con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Locker lock de líder entre instancias sobre redislock.
type Locker struct {
	client *redislock.Client
}

func NewLocker(rdb goredis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// TryLock un intento, sin reintentos: si otra instancia tiene el lock devuelve ok=false.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (inventory.Lease, bool, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return &lease{lock: lock}, true, nil
}

// lease adapta *redislock.Lock a inventory.Lease.
type lease struct {
	lock *redislock.Lock
}

// Refresh devuelve redislock.ErrNotObtained si el lock ya venció o lo tomó otra instancia.
func (l *lease) Refresh(ctx context.Context, ttl time.Duration) error {
	if err := l.lock.Refresh(ctx, ttl, nil); err != nil {
		return fmt.Errorf("refresh lock %s: %w", l.lock.Key(), err)
	}
	return nil
}

func (l *lease) Release(ctx context.Context) {
	_ = l.lock.Release(ctx)
}
