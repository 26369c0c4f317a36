package persistence

import (
	"time"

	"babelgram/sources/platform"
)

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:        platform.Get("REDIS_HOST", "redis"),
		Port:        platform.GetAsInt("REDIS_PORT", 6379),
		Password:    platform.Get("REDIS_PASSWORD", ""),
		DB:          platform.GetAsInt("REDIS_DB", 0),
		MaxRetries:  platform.GetAsInt("REDIS_MAX_RETRIES", 5),
		DialTimeout: platform.GetAsDuration("REDIS_DIAL_TIMEOUT", "5s"),
	}
}

type VaultConfig struct {
	Backend     string
	KeyPrefix   string
	PostgresDSN string
}

func NewVaultConfig() *VaultConfig {
	return &VaultConfig{
		Backend:   platform.Get("VAULT_BACKEND", "redis"),
		KeyPrefix: platform.Get("VAULT_KEY_PREFIX", "babelgram"),
		PostgresDSN: platform.Get("VAULT_POSTGRES_DSN",
			"host=localhost port=5432 user=postgres password=password dbname=babelgram sslmode=disable"),
	}
}
