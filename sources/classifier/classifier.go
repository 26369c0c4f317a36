package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"babelgram/sources/cache"
	"babelgram/sources/features"
	"babelgram/sources/metrics"
	"babelgram/sources/platform"
	"babelgram/sources/tracing"
)

type Verdict string

const (
	VerdictSame      Verdict = "same"
	VerdictDifferent Verdict = "different"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

type Result struct {
	IsSameLanguage bool
	Verdict        Verdict
	Confidence     Confidence
}

type cachedVerdict struct {
	Verdict    Verdict
	Confidence Confidence
}

// FeatureSource is the slice of the feature manager the classifier needs.
type FeatureSource interface {
	IsEnabledDefault(featureName string, defaultValue bool) bool
}

// Classifier decides whether a text is in the reference language using an
// ordered list of cheap local heuristics, escalating to the external
// detector only when none of them is confident. Verdicts are memoized in a
// bounded store; a failed escalation is answered with DIFFERENT and never
// cached, so a translation affordance is shown rather than hidden.
type Classifier struct {
	config   *ClassifierConfig
	detector Detector
	flags    FeatureSource
	metrics  *metrics.MetricsService
	verdicts *cache.Store[cachedVerdict]
}

func NewClassifier(config *ClassifierConfig, detector Detector, flags FeatureSource, metrics *metrics.MetricsService) *Classifier {
	return &Classifier{
		config:   config,
		detector: detector,
		flags:    flags,
		metrics:  metrics,
		verdicts: cache.NewStore[cachedVerdict](config.CacheCapacity, config.CacheTTL),
	}
}

func (x *Classifier) Classify(log *tracing.Logger, text, referenceLanguage string) Result {
	defer tracing.ProfilePoint(log, "Classification completed", "classifier.classify", "text_length", len(text))()

	reference := NormalizeLanguage(referenceLanguage)
	key := x.cacheKey(text, reference)

	if hit, ok := x.verdicts.Get(key); ok {
		log.D("Classification cache hit", tracing.CacheKey, key, tracing.Verdict, string(hit.Verdict))
		x.metrics.ClassifierVerdict("cache", string(hit.Verdict))
		return x.result(hit.Verdict, hit.Confidence)
	}

	if verdict, confidence, decided := x.heuristics(log, text, reference); decided {
		x.verdicts.Set(key, cachedVerdict{Verdict: verdict, Confidence: confidence})
		x.metrics.ClassifierVerdict("heuristic", string(verdict))
		return x.result(verdict, confidence)
	}

	if !x.flags.IsEnabledDefault(features.FeatureClassifierAutoDetection, true) {
		log.D("Escalation disabled by feature flag, assuming different language")
		x.metrics.ClassifierVerdict("fallback", string(VerdictDifferent))
		return x.result(VerdictDifferent, ConfidenceLow)
	}

	verdict, confidence, err := x.escalate(log, text, reference)
	if err != nil {
		// Conservative default: an unnecessary translation affordance
		// beats silently hiding a needed one. Failures are not cached.
		log.W("Language detection escalation failed, assuming different language", tracing.InnerError, err)
		x.metrics.ClassifierEscalation("error")
		return x.result(VerdictDifferent, ConfidenceLow)
	}

	x.verdicts.Set(key, cachedVerdict{Verdict: verdict, Confidence: confidence})
	x.metrics.ClassifierEscalation("ok")
	x.metrics.ClassifierVerdict("detector", string(verdict))
	return x.result(verdict, confidence)
}

// heuristics runs the local decision list. The third return value reports
// whether any step produced a confident verdict.
func (x *Classifier) heuristics(log *tracing.Logger, text, reference string) (Verdict, Confidence, bool) {
	trimmed := strings.TrimSpace(text)

	if len([]rune(trimmed)) < x.config.MinTextLength {
		return VerdictSame, ConfidenceLow, true
	}
	if looksLikeURL(trimmed) || mostlyNumeric(trimmed, x.config.NumericRatio) {
		return VerdictSame, ConfidenceLow, true
	}

	tokens := tokenize(trimmed)
	referenceRatio := functionWordRatio(tokens, reference)
	if referenceRatio >= x.config.SameRatio && x.maxOtherRatio(tokens, reference) < x.config.LowRatio {
		return VerdictSame, ConfidenceHigh, true
	}
	for lang := range functionWords {
		if lang == reference {
			continue
		}
		if functionWordRatio(tokens, lang) >= x.config.ForeignRatio && referenceRatio < x.config.LowRatio {
			log.D("Foreign function words dominate", tracing.SourceLanguage, lang)
			return VerdictDifferent, ConfidenceHigh, true
		}
	}

	counts := countScripts(trimmed)
	if counts.letters > 0 {
		foreign := float64(counts.foreignScript()) / float64(counts.letters)
		if latinScriptLanguages[reference] && foreign >= x.config.ScriptRatio {
			return VerdictDifferent, ConfidenceHigh, true
		}
		if accentFreeLanguages[reference] && counts.accented >= 2 && counts.foreignScript() == 0 {
			return VerdictDifferent, ConfidenceHigh, true
		}
	}

	if counts.runes > 0 && float64(counts.emoji)/float64(counts.runes) >= x.config.EmojiRatio {
		return VerdictSame, ConfidenceLow, true
	}

	return "", "", false
}

func (x *Classifier) escalate(log *tracing.Logger, text, reference string) (Verdict, Confidence, error) {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 10*time.Second)
	defer cancel()

	detection, err := x.detector.DetectLanguage(ctx, text)
	if err != nil {
		return "", "", err
	}

	confidence := ConfidenceLow
	if detection.Confidence >= 0.8 {
		confidence = ConfidenceHigh
	}

	log.D("Escalated detection", tracing.SourceLanguage, detection.Language, tracing.Confidence, detection.Confidence)

	if SameLanguage(detection.Language, reference) {
		return VerdictSame, confidence, nil
	}
	return VerdictDifferent, confidence, nil
}

// maxOtherRatio is the strongest competing-language signal among tokens
// that are NOT also reference function words, so confusable languages do
// not veto a clear reference match.
func (x *Classifier) maxOtherRatio(tokens []string, reference string) float64 {
	maxRatio := 0.0
	for lang := range functionWords {
		if lang == reference {
			continue
		}
		if ratio := distinctiveWordRatio(tokens, lang, reference); ratio > maxRatio {
			maxRatio = ratio
		}
	}
	return maxRatio
}

// cacheKey derives the memoization key. Exact normalized text is the
// default; the similarity key (prefix + length bucket) trades precision
// for hit rate and stays behind a feature flag, since two similar short
// texts may then share a verdict.
func (x *Classifier) cacheKey(text, reference string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	if x.flags.IsEnabledDefault(features.FeatureClassifierSimilarityKeys, false) {
		runes := []rune(normalized)
		prefix := runes
		if len(runes) > x.config.SimilarityPrefix {
			prefix = runes[:x.config.SimilarityPrefix]
		}
		bucket := len(runes) / x.config.SimilarityBucket
		return fmt.Sprintf("%s|%d|%s", string(prefix), bucket, reference)
	}

	return normalized + "|" + reference
}

func (x *Classifier) result(verdict Verdict, confidence Confidence) Result {
	return Result{IsSameLanguage: verdict == VerdictSame, Verdict: verdict, Confidence: confidence}
}

// Reset drops all memoized verdicts. Intended for tests.
func (x *Classifier) Reset() {
	x.verdicts.Clear()
}

// CachedVerdicts reports the number of memoized verdicts.
func (x *Classifier) CachedVerdicts() int {
	return x.verdicts.Len()
}
