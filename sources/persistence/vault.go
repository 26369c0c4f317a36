package persistence

import (
	"context"
	"sync"

	"babelgram/sources/tracing"

	"github.com/redis/go-redis/v9"
)

// Vault is the durable key/value store behind the translation cache and
// the UI-state store. A miss is (nil, nil): durability is best effort and
// callers treat a missing value like a cold start, never like a failure.
type Vault interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

type RedisVault struct {
	client *redis.Client
	config *VaultConfig
	log    *tracing.Logger
}

func NewRedisVault(client *redis.Client, config *VaultConfig, log *tracing.Logger) *RedisVault {
	return &RedisVault{client: client, config: config, log: log}
}

func (x *RedisVault) namespaced(key string) string {
	return x.config.KeyPrefix + ":" + key
}

func (x *RedisVault) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := tracing.ReportExecutionForRE(x.log, func() ([]byte, error) {
		return x.client.Get(ctx, x.namespaced(key)).Bytes()
	}, func(l *tracing.Logger) {
		l.D("Vault read", tracing.VaultKey, key)
	})
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		x.log.E("Failed to read from vault", tracing.VaultKey, key, tracing.InnerError, err)
		return nil, err
	}
	return data, nil
}

func (x *RedisVault) Set(ctx context.Context, key string, value []byte) error {
	if err := x.client.Set(ctx, x.namespaced(key), value, 0).Err(); err != nil {
		x.log.E("Failed to write to vault", tracing.VaultKey, key, tracing.InnerError, err)
		return err
	}
	return nil
}

func (x *RedisVault) Remove(ctx context.Context, key string) error {
	if err := x.client.Del(ctx, x.namespaced(key)).Err(); err != nil {
		x.log.E("Failed to remove from vault", tracing.VaultKey, key, tracing.InnerError, err)
		return err
	}
	return nil
}

// MemoryVault keeps everything in process memory. Used by tests and as a
// fallback when no durable backend is configured.
type MemoryVault struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{entries: make(map[string][]byte)}
}

func (x *MemoryVault) Get(ctx context.Context, key string) ([]byte, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	value, ok := x.entries[key]
	if !ok {
		return nil, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

func (x *MemoryVault) Set(ctx context.Context, key string, value []byte) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	copied := make([]byte, len(value))
	copy(copied, value)
	x.entries[key] = copied
	return nil
}

func (x *MemoryVault) Remove(ctx context.Context, key string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, key)
	return nil
}

func (x *MemoryVault) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}
