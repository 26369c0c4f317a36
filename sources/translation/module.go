package translation

import (
	"babelgram/sources/features"
	"babelgram/sources/metrics"
	"babelgram/sources/persistence"

	"go.uber.org/fx"
)

var Module = fx.Module("translation",
	fx.Provide(
		NewTranslationConfig,
		NewOpenAIClient,
		NewOpenAIProvider,
		NewOpenRouterClient,
		NewOpenRouterProvider,
		NewUsageLimiter,
		func(config *TranslationConfig, providers ProviderSource, vault persistence.Vault, usage *UsageLimiter, manager *features.FeatureManager, ms *metrics.MetricsService) *Manager {
			return NewManager(config, providers, vault, usage, manager, ms)
		},
	),
)
