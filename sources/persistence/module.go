package persistence

import (
	"context"

	"babelgram/sources/tracing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("persistence",
	fx.Provide(
		NewRedisConfig, NewRedis,
		NewVaultConfig, NewVault,
	),

	fx.Invoke(func(rdb *redis.Client, lc fx.Lifecycle, log *tracing.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := rdb.Ping(ctx).Err(); err != nil {
					log.F("Failed to ping Redis", tracing.InnerError, err)
				} else {
					log.I("Redis connection verified")
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				log.I("Closing Redis connection")
				return rdb.Close()
			},
		})
	}),
)

func NewVault(config *VaultConfig, client *redis.Client, log *tracing.Logger) (Vault, error) {
	switch config.Backend {
	case "postgres":
		log.I("Vault backend selected", tracing.VaultBackend, "postgres")
		return NewPostgresVault(config, log)
	case "memory":
		log.I("Vault backend selected", tracing.VaultBackend, "memory")
		return NewMemoryVault(), nil
	default:
		log.I("Vault backend selected", tracing.VaultBackend, "redis")
		return NewRedisVault(client, config, log), nil
	}
}
