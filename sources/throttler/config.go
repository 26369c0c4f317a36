package throttler

import (
	"time"

	"babelgram/sources/platform"
)

type ThrottlerConfig struct {
	Limit time.Duration
}

func NewThrottlerConfig() *ThrottlerConfig {
	return &ThrottlerConfig{Limit: platform.GetAsDuration("PREFETCH_THROTTLE_LIMIT", "30s")}
}
