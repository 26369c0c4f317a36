package translation

import (
	"context"
	"fmt"
	"time"

	"babelgram/sources/platform"
	"babelgram/sources/tracing"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// UsageLimiter caps translation calls per conversation per day and month
// and keeps a spend ledger. Counter keys expire shortly after their period
// ends. Redis being down never blocks translation; the limiter fails open.
type UsageLimiter struct {
	redis  *redis.Client
	config *TranslationConfig
}

func NewUsageLimiter(redis *redis.Client, config *TranslationConfig) *UsageLimiter {
	return &UsageLimiter{redis: redis, config: config}
}

func (x *UsageLimiter) usageKey(period string, conversationID platform.ConversationID) string {
	now := time.Now()
	var timePart string
	switch period {
	case "daily":
		timePart = now.Format("2006-01-02")
	case "monthly":
		timePart = now.Format("2006-01")
	}
	return fmt.Sprintf("usage:translation:%s:%d:%s", period, conversationID, timePart)
}

func (x *UsageLimiter) spendKey(conversationID platform.ConversationID) string {
	return fmt.Sprintf("usage:translation:spend:%d:%s", conversationID, time.Now().Format("2006-01"))
}

// CheckAndReserve verifies both period limits and reserves n calls. It
// returns ErrUsageLimited when a limit is already exhausted.
func (x *UsageLimiter) CheckAndReserve(log *tracing.Logger, conversationID platform.ConversationID, n int) error {
	if x == nil {
		return nil
	}
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	dailyKey := x.usageKey("daily", conversationID)
	monthlyKey := x.usageKey("monthly", conversationID)

	dailyCount, err := x.redis.Get(ctx, dailyKey).Int()
	if err != nil && err != redis.Nil {
		log.E("Failed to read daily usage, allowing", tracing.InnerError, err)
		return nil
	}
	if dailyCount >= x.config.DailyLimit {
		log.I("Translation usage limit exceeded", tracing.ConversationId, int64(conversationID), "limit_type", "daily", "current_usage", dailyCount, "limit", x.config.DailyLimit)
		return ErrUsageLimited
	}

	monthlyCount, err := x.redis.Get(ctx, monthlyKey).Int()
	if err != nil && err != redis.Nil {
		log.E("Failed to read monthly usage, allowing", tracing.InnerError, err)
		return nil
	}
	if monthlyCount >= x.config.MonthlyLimit {
		log.I("Translation usage limit exceeded", tracing.ConversationId, int64(conversationID), "limit_type", "monthly", "current_usage", monthlyCount, "limit", x.config.MonthlyLimit)
		return ErrUsageLimited
	}

	pipe := x.redis.TxPipeline()
	pipe.IncrBy(ctx, dailyKey, int64(n))
	pipe.IncrBy(ctx, monthlyKey, int64(n))
	pipe.Expire(ctx, dailyKey, 25*time.Hour)
	pipe.Expire(ctx, monthlyKey, 32*24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		log.E("Failed to increment translation usage", tracing.InnerError, err)
	}

	return nil
}

// RecordSpend adds the estimated cost of completed calls to the monthly
// ledger. Best effort.
func (x *UsageLimiter) RecordSpend(log *tracing.Logger, conversationID platform.ConversationID, calls int) {
	if x == nil {
		return
	}
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	spend := x.config.CostPerCall.Mul(decimal.NewFromInt(int64(calls)))
	spendFloat, _ := spend.Float64()

	pipe := x.redis.TxPipeline()
	pipe.IncrByFloat(ctx, x.spendKey(conversationID), spendFloat)
	pipe.Expire(ctx, x.spendKey(conversationID), 32*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.E("Failed to record translation spend", tracing.InnerError, err)
		return
	}

	log.D("Translation spend recorded", tracing.ConversationId, int64(conversationID), tracing.AiCost, spend.String())
}
