package throttler

import (
	"context"
	"fmt"
	"time"

	"babelgram/sources/platform"
	"babelgram/sources/tracing"

	"github.com/redis/go-redis/v9"
)

// Throttler debounces proactive translation runs: entering and leaving a
// conversation repeatedly should not re-trigger a prefetch every time.
// Fails open when redis is unreachable.
type Throttler struct {
	client *redis.Client
	config *ThrottlerConfig
	log    *tracing.Logger
	ctx    context.Context
}

func NewThrottler(client *redis.Client, config *ThrottlerConfig, log *tracing.Logger) *Throttler {
	ctx := context.Background()
	return &Throttler{client: client, config: config, log: log, ctx: ctx}
}

func (x *Throttler) IsAllowed(conversationID platform.ConversationID) bool {
	ctx, cancel := platform.ContextTimeout(x.ctx)
	defer cancel()

	key := fmt.Sprintf("prefetch:%d", conversationID)

	return tracing.ReportExecutionForR(x.log, func() bool {
		success, err := x.client.SetNX(ctx, key, time.Now().Unix(), x.config.Limit).Result()
		if err != nil {
			x.log.E("Error setting prefetch throttle key", tracing.InnerError, err)
			return true
		}
		return success
	}, func(l *tracing.Logger) {
		l.D("Prefetch throttle checked", tracing.ConversationId, int64(conversationID))
	})
}
