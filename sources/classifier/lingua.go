package classifier

import (
	"context"
	"errors"
	"strings"

	"babelgram/sources/texting/transform"
	"babelgram/sources/tracing"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector is the default escalation target: a statistical n-gram
// detector that runs in-process, so the uncertain path stays cheap unless
// an AI-backed detector is configured instead.
type LinguaDetector struct {
	detector lingua.LanguageDetector
	config   *ClassifierConfig
	log      *tracing.Logger
}

var ErrDetectionInconclusive = errors.New("language detection inconclusive")

func NewLinguaDetector(config *ClassifierConfig, log *tracing.Logger) *LinguaDetector {
	languages := []lingua.Language{
		lingua.English, lingua.Spanish, lingua.French, lingua.German,
		lingua.Italian, lingua.Portuguese, lingua.Russian, lingua.Ukrainian,
		lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Arabic,
		lingua.Dutch, lingua.Polish, lingua.Turkish, lingua.Hindi,
	}
	detector := lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).WithPreloadedLanguageModels().Build()

	log.I("Lingua detector initialized", "languages", len(languages))
	return &LinguaDetector{detector: detector, config: config, log: log}
}

func (x *LinguaDetector) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	defer tracing.ProfilePoint(x.log, "Language detection completed", "classifier.lingua.detect", "text_length", len(text))()

	cleanText := strings.TrimSpace(text)
	if len(cleanText) < x.config.DetectionMinLength {
		return Detection{}, ErrDetectionInconclusive
	}

	truncatedText := transform.SmartTruncate(cleanText, x.config.DetectionMaxLength)

	language, exists := x.detector.DetectLanguageOf(truncatedText)
	if !exists {
		return Detection{}, ErrDetectionInconclusive
	}

	confidence := x.detector.ComputeLanguageConfidence(truncatedText, language)
	code := strings.ToLower(language.IsoCode639_1().String())

	x.log.D("Language detected", tracing.SourceLanguage, code, tracing.Confidence, confidence)
	return Detection{Language: code, Confidence: confidence}, nil
}
