package classifier

import (
	"time"

	"babelgram/sources/platform"
)

type ClassifierConfig struct {
	MinTextLength      int
	CacheCapacity      int
	CacheTTL           time.Duration
	SameRatio          float64
	ForeignRatio       float64
	LowRatio           float64
	ScriptRatio        float64
	EmojiRatio         float64
	NumericRatio       float64
	SimilarityPrefix   int
	SimilarityBucket   int
	DetectionMinLength int
	DetectionMaxLength int
}

func NewClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		MinTextLength:      platform.GetAsInt("CLASSIFIER_MIN_TEXT_LENGTH", 4),
		CacheCapacity:      platform.GetAsInt("CLASSIFIER_CACHE_CAPACITY", 100),
		CacheTTL:           platform.GetAsDuration("CLASSIFIER_CACHE_TTL", "1h"),
		SameRatio:          platform.GetAsFloat("CLASSIFIER_SAME_RATIO", 0.2),
		ForeignRatio:       platform.GetAsFloat("CLASSIFIER_FOREIGN_RATIO", 0.3),
		LowRatio:           platform.GetAsFloat("CLASSIFIER_LOW_RATIO", 0.15),
		ScriptRatio:        platform.GetAsFloat("CLASSIFIER_SCRIPT_RATIO", 0.3),
		EmojiRatio:         platform.GetAsFloat("CLASSIFIER_EMOJI_RATIO", 0.5),
		NumericRatio:       platform.GetAsFloat("CLASSIFIER_NUMERIC_RATIO", 0.5),
		SimilarityPrefix:   platform.GetAsInt("CLASSIFIER_SIMILARITY_PREFIX", 16),
		SimilarityBucket:   platform.GetAsInt("CLASSIFIER_SIMILARITY_BUCKET", 16),
		DetectionMinLength: platform.GetAsInt("CLASSIFIER_DETECTION_MIN_LENGTH", 7),
		DetectionMaxLength: platform.GetAsInt("CLASSIFIER_DETECTION_MAX_LENGTH", 256),
	}
}
