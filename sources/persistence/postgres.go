package persistence

import (
	"context"
	"errors"
	"time"

	"babelgram/sources/tracing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// VaultEntry is the single-table relational layout of the vault: one row
// per namespaced key.
type VaultEntry struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (VaultEntry) TableName() string {
	return "vault_entries"
}

type PostgresVault struct {
	db  *gorm.DB
	log *tracing.Logger
}

func NewPostgresVault(config *VaultConfig, log *tracing.Logger) (*PostgresVault, error) {
	db, err := gorm.Open(postgres.Open(config.PostgresDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.E("Failed to open PostgreSQL vault", tracing.InnerError, err)
		return nil, err
	}

	if err := db.AutoMigrate(&VaultEntry{}); err != nil {
		log.E("Failed to migrate vault schema", tracing.InnerError, err)
		return nil, err
	}

	log.I("PostgreSQL vault initialized")
	return &PostgresVault{db: db, log: log}, nil
}

func (x *PostgresVault) Get(ctx context.Context, key string) ([]byte, error) {
	var entry VaultEntry
	err := x.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		x.log.E("Failed to read from vault", tracing.VaultKey, key, tracing.InnerError, err)
		return nil, err
	}
	return entry.Value, nil
}

func (x *PostgresVault) Set(ctx context.Context, key string, value []byte) error {
	entry := VaultEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := x.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		x.log.E("Failed to write to vault", tracing.VaultKey, key, tracing.InnerError, err)
	}
	return err
}

func (x *PostgresVault) Remove(ctx context.Context, key string) error {
	err := x.db.WithContext(ctx).Delete(&VaultEntry{}, "key = ?", key).Error
	if err != nil {
		x.log.E("Failed to remove from vault", tracing.VaultKey, key, tracing.InnerError, err)
	}
	return err
}

func (x *PostgresVault) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
