package classifier

import (
	"babelgram/sources/features"
	"babelgram/sources/metrics"

	"go.uber.org/fx"
)

var Module = fx.Module("classifier",
	fx.Provide(
		NewClassifierConfig,
		NewLinguaDetector,
		func(ld *LinguaDetector) Detector { return ld },
		func(config *ClassifierConfig, detector Detector, manager *features.FeatureManager, ms *metrics.MetricsService) *Classifier {
			return NewClassifier(config, detector, manager, ms)
		},
	),
)
