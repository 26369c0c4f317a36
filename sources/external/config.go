package external

import (
	"babelgram/sources/platform"
)

type OutsidersConfig struct {
	HealthPort  int
	MetricsPort int
}

func NewOutsidersConfig() *OutsidersConfig {
	return &OutsidersConfig{
		HealthPort:  platform.GetAsInt("OUTSIDERS_HEALTH_PORT", 10000),
		MetricsPort: platform.GetAsInt("OUTSIDERS_METRICS_PORT", 10001),
	}
}
